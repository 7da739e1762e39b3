package edm

import (
	"fmt"
	"reflect"
	"strings"
)

// Primitive EDM type names.
const (
	Binary         = "Edm.Binary"
	Boolean        = "Edm.Boolean"
	Byte           = "Edm.Byte"
	Date           = "Edm.Date"
	DateTimeOffset = "Edm.DateTimeOffset"
	Decimal        = "Edm.Decimal"
	Double         = "Edm.Double"
	Duration       = "Edm.Duration"
	Guid           = "Edm.Guid"
	Int16          = "Edm.Int16"
	Int32          = "Edm.Int32"
	Int64          = "Edm.Int64"
	SByte          = "Edm.SByte"
	Single         = "Edm.Single"
	Stream         = "Edm.Stream"
	String         = "Edm.String"
	TimeOfDay      = "Edm.TimeOfDay"

	Geography                = "Edm.Geography"
	GeographyPoint           = "Edm.GeographyPoint"
	GeographyLineString      = "Edm.GeographyLineString"
	GeographyPolygon         = "Edm.GeographyPolygon"
	GeographyMultiPoint      = "Edm.GeographyMultiPoint"
	GeographyMultiLineString = "Edm.GeographyMultiLineString"
	GeographyMultiPolygon    = "Edm.GeographyMultiPolygon"
	GeographyCollection      = "Edm.GeographyCollection"
	Geometry                 = "Edm.Geometry"
	GeometryPoint            = "Edm.GeometryPoint"
	GeometryLineString       = "Edm.GeometryLineString"
	GeometryPolygon          = "Edm.GeometryPolygon"
	GeometryMultiPoint       = "Edm.GeometryMultiPoint"
	GeometryMultiLineString  = "Edm.GeometryMultiLineString"
	GeometryMultiPolygon     = "Edm.GeometryMultiPolygon"
	GeometryCollection       = "Edm.GeometryCollection"
)

const (
	untypedName     = ""
	geographyPrefix = "Edm.Geography"
	geometryPrefix  = "Edm.Geometry"
)

// numericRank orders the numeric types for promotion. Higher rank wins.
var numericRank = map[string]int{
	Byte:    1,
	SByte:   1,
	Int16:   2,
	Int32:   3,
	Int64:   4,
	Decimal: 5,
	Single:  6,
	Double:  7,
}

var primitiveTypes = map[string]bool{
	Binary: true, Boolean: true, Byte: true, Date: true, DateTimeOffset: true, Decimal: true,
	Double: true, Duration: true, Guid: true, Int16: true, Int32: true, Int64: true, SByte: true,
	Single: true, Stream: true, String: true, TimeOfDay: true,
	Geography: true, GeographyPoint: true, GeographyLineString: true, GeographyPolygon: true,
	GeographyMultiPoint: true, GeographyMultiLineString: true, GeographyMultiPolygon: true,
	GeographyCollection: true, Geometry: true, GeometryPoint: true, GeometryLineString: true,
	GeometryPolygon: true, GeometryMultiPoint: true, GeometryMultiLineString: true,
	GeometryMultiPolygon: true, GeometryCollection: true,
}

// IsPrimitive reports whether name is one of the built-in Edm primitive types.
func IsPrimitive(name string) bool {
	return primitiveTypes[name]
}

// IsNumeric reports whether name is a numeric primitive type.
func IsNumeric(name string) bool {
	_, ok := numericRank[name]
	return ok
}

// IsIntegral reports whether name is one of the integer types.
func IsIntegral(name string) bool {
	switch name {
	case Byte, SByte, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsTemporal reports whether name is a date or time type.
func IsTemporal(name string) bool {
	switch name {
	case Date, DateTimeOffset, TimeOfDay, Duration:
		return true
	}
	return false
}

// IsGeo reports whether name is a geography or geometry type.
func IsGeo(name string) bool {
	return strings.HasPrefix(name, geographyPrefix) || strings.HasPrefix(name, geometryPrefix)
}

// PromoteNumeric returns the wider of two numeric types.
func PromoteNumeric(a, b string) string {
	if numericRank[b] > numericRank[a] {
		return b
	}
	return a
}

// Compatible reports whether values of the two primitive types can be compared
// with each other. An empty name stands for an untyped value (null) and is
// compatible with everything.
func Compatible(a, b string) bool {
	if a == untypedName || b == untypedName || a == b {
		return true
	}
	if IsNumeric(a) && IsNumeric(b) {
		return true
	}
	if (a == Date && b == DateTimeOffset) || (a == DateTimeOffset && b == Date) {
		return true
	}
	if IsGeo(a) && IsGeo(b) {
		return strings.HasPrefix(a, geographyPrefix) == strings.HasPrefix(b, geographyPrefix)
	}
	return false
}

// FromGoType infers the EDM type from a Go type
func FromGoType(goType reflect.Type) (string, error) {
	if goType == nil {
		return "", fmt.Errorf("nil type")
	}

	if goType.Kind() == reflect.Ptr {
		goType = goType.Elem()
	}

	if goType.PkgPath() == "time" && goType.Name() == "Time" {
		return DateTimeOffset, nil
	}
	if goType.PkgPath() == "time" && goType.Name() == "Duration" {
		return Duration, nil
	}

	if goType.PkgPath() == "github.com/shopspring/decimal" && goType.Name() == "Decimal" {
		return Decimal, nil
	}

	if goType.PkgPath() == "github.com/google/uuid" && goType.Name() == "UUID" {
		return Guid, nil
	}

	if goType.Kind() == reflect.Slice && goType.Elem().Kind() == reflect.Uint8 {
		return Binary, nil
	}

	if goType.Kind() == reflect.Array && goType.Elem().Kind() == reflect.Uint8 {
		return Binary, nil
	}

	switch goType.Kind() {
	case reflect.String:
		return String, nil
	case reflect.Int, reflect.Int32:
		return Int32, nil
	case reflect.Int64:
		return Int64, nil
	case reflect.Int16:
		return Int16, nil
	case reflect.Int8:
		return SByte, nil
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		return Int64, nil
	case reflect.Uint16:
		return Int32, nil
	case reflect.Uint8:
		return Byte, nil
	case reflect.Float32:
		return Single, nil
	case reflect.Float64:
		return Double, nil
	case reflect.Bool:
		return Boolean, nil
	default:
		return "", fmt.Errorf("unsupported Go type: %s", goType.String())
	}
}
