package edm

import (
	"fmt"
	"strconv"
	"strings"
)

// Facets contains metadata attributes that constrain EDM type values
type Facets struct {
	Precision     *int  // Decimal: total digits; temporal types: fractional second digits
	Scale         *int  // Decimal: digits after decimal point
	ScaleVariable bool  // Decimal: Scale="variable", only precision is enforced
	MaxLength     *int  // String, Binary: maximum length
	Unicode       *bool // String: whether Unicode is supported
	SRID          *int  // Geography/Geometry: spatial reference ID
	Nullable      bool  // Whether null values are allowed
}

// IntPtr is a helper for building facets in code.
func IntPtr(v int) *int {
	return &v
}

// intFacets maps the integer-valued tag keys to their field.
var intFacets = map[string]func(*Facets) **int{
	"precision": func(f *Facets) **int { return &f.Precision },
	"scale":     func(f *Facets) **int { return &f.Scale },
	"maxLength": func(f *Facets) **int { return &f.MaxLength },
	"srid":      func(f *Facets) **int { return &f.SRID },
}

// ParseTypeFromTag extracts the EDM type name and facets from an odata struct
// tag such as "type=Edm.Decimal,precision=18,scale=4", "nullable,type=Edm.Date"
// or "maxLength=50". Flags it does not know ('key', 'searchable', ...) are left
// to other tag consumers.
func ParseTypeFromTag(tag string) (typeName string, facets Facets, err error) {
	for _, part := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(strings.TrimSpace(part), "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !hasValue {
			if key == "nullable" {
				facets.Nullable = true
			}
			continue
		}

		switch {
		case key == "type":
			typeName = value
		case key == "unicode":
			unicode, parseErr := strconv.ParseBool(value)
			if parseErr != nil {
				return "", Facets{}, fmt.Errorf("invalid unicode value: %s", value)
			}
			facets.Unicode = &unicode
		case key == "scale" && (strings.EqualFold(value, "variable") || strings.EqualFold(value, "floating")):
			facets.ScaleVariable = true
		case intFacets[key] != nil:
			n, parseErr := strconv.Atoi(value)
			if parseErr != nil {
				return "", Facets{}, fmt.Errorf("invalid %s value: %s", key, value)
			}
			*intFacets[key](&facets) = &n
		}
	}
	return typeName, facets, nil
}
