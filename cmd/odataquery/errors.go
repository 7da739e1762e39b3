package main

import "errors"

var errMissingTarget = errors.New("either --type or --crossjoin is required")
