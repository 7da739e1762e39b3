package edm

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInt16Bounds(t *testing.T) {
	tests := []struct {
		value   interface{}
		wantErr bool
	}{
		{int64(-32768), false},
		{int64(32767), false},
		{int64(-32769), true},
		{int64(32768), true},
		{"123", false},
		{"abc", true},
		{1.5, true},
	}

	for _, tt := range tests {
		err := ValidateInt16(tt.value)
		if tt.wantErr {
			require.Error(t, err, "value %v", tt.value)
			assert.True(t, errors.Is(err, ErrInvalidValue))
		} else {
			assert.NoError(t, err, "value %v", tt.value)
		}
	}
}

func TestValidateIntegerFamilies(t *testing.T) {
	assert.NoError(t, ValidateByte(255))
	assert.Error(t, ValidateByte(-1))
	assert.NoError(t, ValidateSByte(-128))
	assert.Error(t, ValidateSByte(128))
	assert.NoError(t, ValidateInt32(int64(2147483647)))
	assert.Error(t, ValidateInt32(int64(2147483648)))
	assert.NoError(t, ValidateInt64("9223372036854775807"))
	assert.Error(t, ValidateInt64("9223372036854775808"))
}

func TestValidateDecimal(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		facets  Facets
		wantErr bool
	}{
		{"fits precision 6 scale 3", "123.456", Facets{Precision: IntPtr(6), Scale: IntPtr(3)}, false},
		{"too many integer digits", "123.456", Facets{Precision: IntPtr(5), Scale: IntPtr(3)}, true},
		{"too many fraction digits", "1.2345", Facets{Precision: IntPtr(10), Scale: IntPtr(3)}, true},
		{"precision equals scale zero integer", "0.123", Facets{Precision: IntPtr(3), Scale: IntPtr(3)}, false},
		{"precision equals scale nonzero integer", "1.123", Facets{Precision: IntPtr(3), Scale: IntPtr(3)}, true},
		{"variable scale within precision", "12.345", Facets{Precision: IntPtr(5), ScaleVariable: true}, false},
		{"variable scale over precision", "123.456", Facets{Precision: IntPtr(5), ScaleVariable: true}, true},
		{"no facets", decimal.RequireFromString("99999999999.99999"), Facets{}, false},
		{"trailing zeros ignored", "1.2000", Facets{Precision: IntPtr(3), Scale: IntPtr(1)}, false},
		{"negative", -12.5, Facets{Precision: IntPtr(3), Scale: IntPtr(1)}, false},
		{"not a number", "abc", Facets{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDecimal(tt.value, tt.facets)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	assert.NoError(t, ValidateString("abc", Facets{MaxLength: IntPtr(3)}))
	assert.Error(t, ValidateString("abcd", Facets{MaxLength: IntPtr(3)}))
	assert.NoError(t, ValidateString("äöü", Facets{MaxLength: IntPtr(3)}))
	f := false
	assert.Error(t, ValidateString("ä", Facets{Unicode: &f}))
	assert.Error(t, ValidateString(42, Facets{}))
}

func TestValidateBinaryAndGuid(t *testing.T) {
	assert.NoError(t, ValidateBinary("AQID", Facets{MaxLength: IntPtr(3)}))
	assert.Error(t, ValidateBinary("AQIDBA", Facets{MaxLength: IntPtr(3)}))
	assert.Error(t, ValidateBinary("***", Facets{}))

	assert.NoError(t, ValidateGuid("01234567-89ab-cdef-0123-456789abcdef"))
	assert.NoError(t, ValidateGuid(uuid.New()))
	assert.Error(t, ValidateGuid("0123456789abcdef0123456789abcdef"))
	assert.Error(t, ValidateGuid("not-a-guid"))
}

func TestValidateTemporal(t *testing.T) {
	assert.NoError(t, ValidateDate("2024-02-29"))
	assert.Error(t, ValidateDate("2024-13-01"))
	assert.Error(t, ValidateDate("2024/01/01"))

	assert.NoError(t, ValidateTimeOfDay("23:59:59.999", Facets{}))
	assert.Error(t, ValidateTimeOfDay("24:00:00", Facets{}))
	assert.Error(t, ValidateTimeOfDay("12:00:00.1234", Facets{Precision: IntPtr(3)}))

	assert.NoError(t, ValidateDateTimeOffset("2024-01-01T10:00:00Z", Facets{}))
	assert.NoError(t, ValidateDateTimeOffset("2024-01-01T10:00:00.5+02:00", Facets{Precision: IntPtr(1)}))
	assert.Error(t, ValidateDateTimeOffset("2024-01-01T10:00:00", Facets{}))
	assert.NoError(t, ValidateDateTimeOffset(time.Now().Truncate(time.Second), Facets{Precision: IntPtr(0)}))

	assert.NoError(t, ValidateDuration("P1DT2H3M4.5S", Facets{}))
	assert.NoError(t, ValidateDuration("-PT10M", Facets{}))
	assert.Error(t, ValidateDuration("P", Facets{}))
	assert.Error(t, ValidateDuration("PT", Facets{}))
	assert.Error(t, ValidateDuration("PT1.25S", Facets{Precision: IntPtr(1)}))
	assert.NoError(t, ValidateDuration(5*time.Second, Facets{}))
}

func TestValidateGeo(t *testing.T) {
	point := map[string]interface{}{
		"type":        "Point",
		"coordinates": []interface{}{1.0, 2.0},
		"crs": map[string]interface{}{
			"type":       "name",
			"properties": map[string]interface{}{"name": "EPSG:4326"},
		},
	}

	assert.NoError(t, ValidateGeo(GeographyPoint, point, Facets{SRID: IntPtr(4326)}))
	assert.NoError(t, ValidateGeo(Geography, point, Facets{}))
	assert.Error(t, ValidateGeo(GeographyPoint, point, Facets{SRID: IntPtr(3857)}))
	assert.Error(t, ValidateGeo(GeographyPolygon, point, Facets{}))

	badCRS := map[string]interface{}{
		"type":        "Point",
		"coordinates": []interface{}{1.0, 2.0},
		"crs": map[string]interface{}{
			"type":       "name",
			"properties": map[string]interface{}{"name": "WGS84"},
		},
	}
	assert.Error(t, ValidateGeo(GeometryPoint, badCRS, Facets{}))

	collection := map[string]interface{}{
		"type":       "GeometryCollection",
		"geometries": []interface{}{},
	}
	assert.NoError(t, ValidateGeo(GeometryCollection, collection, Facets{}))
}

func TestValidateDispatch(t *testing.T) {
	assert.NoError(t, Validate(Boolean, true, Facets{}))
	assert.NoError(t, Validate(Int32, nil, Facets{Nullable: true}))
	assert.Error(t, Validate(Int32, nil, Facets{}))

	err := Validate(Int16, int64(40000), Facets{})
	var valueErr *ValueError
	require.True(t, errors.As(err, &valueErr))
	assert.Equal(t, Int16, valueErr.TypeName)
	assert.Equal(t, int64(40000), valueErr.Value)

	assert.Error(t, Validate("Edm.Unknown", 1, Facets{}))
}
