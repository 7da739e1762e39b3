package edm

import (
	"fmt"
	"math"
	"strconv"
)

// toInt64 widens any Go integer (or integral string) to int64.
func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func validateRange(typeName string, value interface{}, lo, hi int64) error {
	n, ok := toInt64(value)
	if !ok || n < lo || n > hi {
		return invalid(typeName, value, fmt.Sprintf("an integer in [%d, %d]", lo, hi))
	}
	return nil
}

// ValidateByte checks an unsigned 8-bit integer.
func ValidateByte(value interface{}) error {
	return validateRange(Byte, value, 0, math.MaxUint8)
}

// ValidateSByte checks a signed 8-bit integer.
func ValidateSByte(value interface{}) error {
	return validateRange(SByte, value, math.MinInt8, math.MaxInt8)
}

// ValidateInt16 checks a signed 16-bit integer.
func ValidateInt16(value interface{}) error {
	return validateRange(Int16, value, math.MinInt16, math.MaxInt16)
}

// ValidateInt32 checks a signed 32-bit integer.
func ValidateInt32(value interface{}) error {
	return validateRange(Int32, value, math.MinInt32, math.MaxInt32)
}

// ValidateInt64 checks a signed 64-bit integer.
func ValidateInt64(value interface{}) error {
	return validateRange(Int64, value, math.MinInt64, math.MaxInt64)
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		switch v {
		case "INF":
			return math.Inf(1), true
		case "-INF":
			return math.Inf(-1), true
		case "NaN":
			return math.NaN(), true
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	if n, ok := toInt64(value); ok {
		return float64(n), true
	}
	return 0, false
}

// ValidateSingle checks an IEEE 754 single precision value. Infinities and
// NaN are allowed.
func ValidateSingle(value interface{}) error {
	f, ok := toFloat64(value)
	if !ok {
		return invalid(Single, value, "a floating point number")
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return invalid(Single, value, "a value within single precision range")
	}
	return nil
}

// ValidateDouble checks an IEEE 754 double precision value.
func ValidateDouble(value interface{}) error {
	if _, ok := toFloat64(value); !ok {
		return invalid(Double, value, "a floating point number")
	}
	return nil
}
