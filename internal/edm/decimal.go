package edm

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ToDecimal converts a Go value to decimal.Decimal.
func ToDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, fmt.Errorf("nil decimal")
		}
		return *v, nil
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int8:
		return decimal.NewFromInt(int64(v)), nil
	case int16:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint8:
		return decimal.NewFromInt(int64(v)), nil
	case uint16:
		return decimal.NewFromInt(int64(v)), nil
	case uint32:
		return decimal.NewFromInt(int64(v)), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot convert %T to Edm.Decimal", value)
	}
}

// digitCounts returns the number of significant integer digits and fraction
// digits of d. Trailing fraction zeros do not count.
func digitCounts(d decimal.Decimal) (intDigits, fracDigits int) {
	s := d.Abs().String()
	intPart, fracPart, _ := strings.Cut(s, ".")
	intPart = strings.TrimLeft(intPart, "0")
	fracPart = strings.TrimRight(fracPart, "0")
	return len(intPart), len(fracPart)
}

// ValidateDecimal checks an Edm.Decimal value against its Precision and Scale
// facets. With a fixed scale the integer part may use at most
// Precision-Scale digits and the fraction at most Scale digits. A variable
// scale only bounds the total number of digits.
func ValidateDecimal(value interface{}, facets Facets) error {
	d, err := ToDecimal(value)
	if err != nil {
		return invalid(Decimal, value, "a decimal number")
	}

	intDigits, fracDigits := digitCounts(d)

	if facets.Precision == nil {
		if facets.Scale != nil && fracDigits > *facets.Scale {
			return invalid(Decimal, value, fmt.Sprintf("at most %d fractional digits", *facets.Scale))
		}
		return nil
	}
	precision := *facets.Precision

	if facets.ScaleVariable {
		if intDigits+fracDigits > precision {
			return invalid(Decimal, value, fmt.Sprintf("at most %d digits", precision))
		}
		return nil
	}

	scale := 0
	if facets.Scale != nil {
		scale = *facets.Scale
	}
	if scale > precision {
		return fmt.Errorf("scale (%d) cannot be greater than precision (%d)", scale, precision)
	}

	if intDigits > precision-scale {
		if precision == scale {
			return invalid(Decimal, value, "a zero integer part")
		}
		return invalid(Decimal, value, fmt.Sprintf("at most %d integer digits", precision-scale))
	}
	if fracDigits > scale {
		return invalid(Decimal, value, fmt.Sprintf("at most %d fractional digits", scale))
	}
	return nil
}
