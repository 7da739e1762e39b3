package edm

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is matched by every *ValueError through errors.Is.
var ErrInvalidValue = errors.New("invalid value")

// ValueError reports a value that does not satisfy the rules of its EDM type.
type ValueError struct {
	TypeName string
	Value    interface{}
	Expected string
}

func (e *ValueError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("invalid value %v for type %s", e.Value, e.TypeName)
	}
	return fmt.Sprintf("invalid value %v for type %s, expected %s", e.Value, e.TypeName, e.Expected)
}

// Is makes errors.Is(err, ErrInvalidValue) work for value errors.
func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func invalid(typeName string, value interface{}, expected string) *ValueError {
	return &ValueError{TypeName: typeName, Value: value, Expected: expected}
}

// Validate checks value against the rules of the named primitive type. Nil
// values are accepted when facets allow null.
func Validate(typeName string, value interface{}, facets Facets) error {
	if value == nil {
		if facets.Nullable {
			return nil
		}
		return invalid(typeName, value, "a non-null value")
	}

	switch typeName {
	case Boolean:
		return ValidateBoolean(value)
	case Byte:
		return ValidateByte(value)
	case SByte:
		return ValidateSByte(value)
	case Int16:
		return ValidateInt16(value)
	case Int32:
		return ValidateInt32(value)
	case Int64:
		return ValidateInt64(value)
	case Decimal:
		return ValidateDecimal(value, facets)
	case Single:
		return ValidateSingle(value)
	case Double:
		return ValidateDouble(value)
	case String:
		return ValidateString(value, facets)
	case Binary:
		return ValidateBinary(value, facets)
	case Guid:
		return ValidateGuid(value)
	case Date:
		return ValidateDate(value)
	case DateTimeOffset:
		return ValidateDateTimeOffset(value, facets)
	case TimeOfDay:
		return ValidateTimeOfDay(value, facets)
	case Duration:
		return ValidateDuration(value, facets)
	case Stream:
		return nil
	}

	if IsGeo(typeName) {
		return ValidateGeo(typeName, value, facets)
	}
	return fmt.Errorf("unknown EDM type: %s", typeName)
}
