package edm

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateBoolean accepts Go bools and the literals true/false.
func ValidateBoolean(value interface{}) error {
	switch v := value.(type) {
	case bool:
		return nil
	case string:
		if v == "true" || v == "false" {
			return nil
		}
	}
	return invalid(Boolean, value, "true or false")
}

// ValidateString checks the MaxLength facet (counted in characters).
func ValidateString(value interface{}, facets Facets) error {
	s, ok := value.(string)
	if !ok {
		return invalid(String, value, "a string")
	}
	if facets.MaxLength != nil && utf8.RuneCountInString(s) > *facets.MaxLength {
		return invalid(String, value, fmt.Sprintf("at most %d characters", *facets.MaxLength))
	}
	if facets.Unicode != nil && !*facets.Unicode {
		for _, r := range s {
			if r > 127 {
				return invalid(String, value, "ASCII characters only")
			}
		}
	}
	return nil
}

// ValidateBinary accepts raw bytes or base64url text and checks MaxLength
// against the decoded size.
func ValidateBinary(value interface{}, facets Facets) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		decoded, err := decodeBase64URL(v)
		if err != nil {
			return invalid(Binary, value, "base64url encoded bytes")
		}
		data = decoded
	default:
		return invalid(Binary, value, "binary data")
	}
	if facets.MaxLength != nil && len(data) > *facets.MaxLength {
		return invalid(Binary, value, fmt.Sprintf("at most %d bytes", *facets.MaxLength))
	}
	return nil
}

func decodeBase64URL(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// ValidateGuid requires the canonical 8-4-4-4-12 hexadecimal form.
func ValidateGuid(value interface{}) error {
	switch v := value.(type) {
	case uuid.UUID:
		return nil
	case string:
		if len(v) == 36 {
			if _, err := uuid.Parse(v); err == nil {
				return nil
			}
		}
	}
	return invalid(Guid, value, "a GUID in 8-4-4-4-12 form")
}
