package edm

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	dateRegex           = regexp.MustCompile(`^-?\d{4,}-(\d{2})-(\d{2})$`)
	timeOfDayRegex      = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2})(?:\.(\d{1,12}))?)?$`)
	dateTimeOffsetRegex = regexp.MustCompile(`^-?\d{4,}-(\d{2})-(\d{2})T(\d{2}):(\d{2})(?::(\d{2})(?:\.(\d{1,12}))?)?(Z|[+-]\d{2}:\d{2})$`)
	durationRegex       = regexp.MustCompile(`^-?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.(\d{1,12}))?S)?)?$`)
)

func checkRanges(typeName string, value interface{}, parts []string, limits []int, minimum []int) error {
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, _ := strconv.Atoi(p)
		if n < minimum[i] || n > limits[i] {
			return invalid(typeName, value, "a valid "+typeName+" value")
		}
	}
	return nil
}

func checkFraction(typeName string, value interface{}, fraction string, facets Facets) error {
	if facets.Precision != nil && len(fraction) > *facets.Precision {
		return invalid(typeName, value, fmt.Sprintf("at most %d fractional second digits", *facets.Precision))
	}
	return nil
}

// ValidateDate checks the YYYY-MM-DD form.
func ValidateDate(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		return nil
	case string:
		m := dateRegex.FindStringSubmatch(v)
		if m == nil {
			return invalid(Date, value, "YYYY-MM-DD")
		}
		return checkRanges(Date, value, m[1:3], []int{12, 31}, []int{1, 1})
	}
	return invalid(Date, value, "YYYY-MM-DD")
}

// ValidateTimeOfDay checks hh:mm[:ss[.fff]]; Precision bounds the fraction.
func ValidateTimeOfDay(value interface{}, facets Facets) error {
	s, ok := value.(string)
	if !ok {
		if _, isTime := value.(time.Time); isTime {
			return nil
		}
		return invalid(TimeOfDay, value, "hh:mm:ss")
	}
	m := timeOfDayRegex.FindStringSubmatch(s)
	if m == nil {
		return invalid(TimeOfDay, value, "hh:mm:ss")
	}
	if err := checkRanges(TimeOfDay, value, m[1:4], []int{23, 59, 59}, []int{0, 0, 0}); err != nil {
		return err
	}
	return checkFraction(TimeOfDay, value, m[4], facets)
}

// ValidateDateTimeOffset checks an RFC 3339 timestamp with offset.
func ValidateDateTimeOffset(value interface{}, facets Facets) error {
	switch v := value.(type) {
	case time.Time:
		if facets.Precision != nil && *facets.Precision < 9 {
			digits := len(trimZeros(fmt.Sprintf("%09d", v.Nanosecond())))
			if digits > *facets.Precision {
				return invalid(DateTimeOffset, value, fmt.Sprintf("at most %d fractional second digits", *facets.Precision))
			}
		}
		return nil
	case string:
		m := dateTimeOffsetRegex.FindStringSubmatch(v)
		if m == nil {
			return invalid(DateTimeOffset, value, "YYYY-MM-DDThh:mm:ssZ")
		}
		if err := checkRanges(DateTimeOffset, value, m[1:6], []int{12, 31, 23, 59, 59}, []int{1, 1, 0, 0, 0}); err != nil {
			return err
		}
		return checkFraction(DateTimeOffset, value, m[6], facets)
	}
	return invalid(DateTimeOffset, value, "YYYY-MM-DDThh:mm:ssZ")
}

// ValidateDuration checks the ISO 8601 day-time duration form.
func ValidateDuration(value interface{}, facets Facets) error {
	switch v := value.(type) {
	case time.Duration:
		return nil
	case string:
		m := durationRegex.FindStringSubmatch(v)
		if m == nil || v == "P" || v == "-P" || v[len(v)-1] == 'T' {
			return invalid(Duration, value, "an ISO 8601 duration like P1DT2H")
		}
		return checkFraction(Duration, value, m[5], facets)
	}
	return invalid(Duration, value, "an ISO 8601 duration like P1DT2H")
}

func trimZeros(s string) string {
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}
