package metadata

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/nlstn/go-odata-query/internal/edm"
)

// goEnumType registers the enum behind a named Go integer type when the type
// exposes an EnumMembers() map[string]<integer> method. It returns the
// qualified enum type name or "" when the type is not an enum.
func (b *Builder) goEnumType(fieldType reflect.Type, isFlags bool) (string, error) {
	baseType := resolveEnumBaseType(fieldType)
	if baseType == nil || baseType.Name() == "" || baseType.PkgPath() == "" {
		return "", nil
	}

	name := qualify(b.model.namespace, baseType.Name())
	if _, exists := b.model.enums[name]; exists {
		return name, nil
	}

	members, err := extractEnumMembersViaMethod(baseType)
	if err != nil || len(members) == 0 {
		return "", err
	}
	underlying, err := DetermineEnumUnderlyingType(baseType)
	if err != nil {
		return "", err
	}

	b.AddEnumType(&EnumType{
		Name:           baseType.Name(),
		UnderlyingType: underlying,
		IsFlags:        isFlags,
		Members:        members,
	})
	return name, nil
}

// resolveEnumBaseType unwraps pointers, slices, and arrays to find the underlying enum type.
func resolveEnumBaseType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}

	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
			continue
		}
		break
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return t
	default:
		return nil
	}
}

// extractEnumMembersViaMethod attempts to call EnumMembers() on the enum type to obtain members.
func extractEnumMembersViaMethod(enumType reflect.Type) ([]EnumMember, error) {
	pointerValue := reflect.New(enumType)
	method := pointerValue.MethodByName("EnumMembers")
	if !method.IsValid() {
		value := pointerValue.Elem()
		if value.CanAddr() {
			method = value.Addr().MethodByName("EnumMembers")
		}
		if !method.IsValid() {
			method = value.MethodByName("EnumMembers")
		}
	}

	if !method.IsValid() {
		return nil, nil
	}

	if method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil, fmt.Errorf("EnumMembers method on type %s must have signature EnumMembers() map[string]<integer>", enumType.Name())
	}

	resultType := method.Type().Out(0)
	if resultType.Kind() != reflect.Map || resultType.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("EnumMembers method on type %s must return map[string]<integer>", enumType.Name())
	}

	values := method.Call(nil)
	if len(values) != 1 {
		return nil, fmt.Errorf("EnumMembers method on type %s returned unexpected results", enumType.Name())
	}

	mapValue := values[0]
	if mapValue.IsNil() {
		return nil, fmt.Errorf("EnumMembers method on type %s returned nil", enumType.Name())
	}

	iter := mapValue.MapRange()
	members := make([]EnumMember, 0, mapValue.Len())
	seen := make(map[string]struct{})
	valueKind := resultType.Elem().Kind()
	if !isSupportedEnumValueKind(valueKind) {
		return nil, fmt.Errorf("EnumMembers method on type %s must return map[string]<integer>", enumType.Name())
	}

	for iter.Next() {
		name := iter.Key().String()
		if name == "" {
			return nil, fmt.Errorf("enum type %s has a member with an empty name", enumType.Name())
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("enum type %s has duplicate member name %s", enumType.Name(), name)
		}
		seen[name] = struct{}{}

		value := iter.Value()
		memberValue, err := convertEnumValueToInt64(value)
		if err != nil {
			return nil, fmt.Errorf("enum type %s has invalid member %s: %w", enumType.Name(), name, err)
		}
		members = append(members, EnumMember{Name: name, Value: memberValue})
	}

	sort.Slice(members, func(i, j int) bool {
		if members[i].Value == members[j].Value {
			return members[i].Name < members[j].Name
		}
		return members[i].Value < members[j].Value
	})

	return members, nil
}

func isSupportedEnumValueKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func convertEnumValueToInt64(value reflect.Value) (int64, error) {
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		unsigned := value.Uint()
		if unsigned > math.MaxInt64 {
			return 0, fmt.Errorf("value %d exceeds maximum supported enum value", unsigned)
		}
		return int64(unsigned), nil
	default:
		return 0, fmt.Errorf("unsupported enum value kind %s", value.Kind())
	}
}

// DetermineEnumUnderlyingType returns the corresponding Edm type for the enum.
func DetermineEnumUnderlyingType(enumType reflect.Type) (string, error) {
	enumType = resolveEnumBaseType(enumType)
	if enumType == nil {
		return "", fmt.Errorf("enum type must be an integer")
	}

	switch enumType.Kind() {
	case reflect.Int8:
		return edm.SByte, nil
	case reflect.Uint8:
		return edm.Byte, nil
	case reflect.Int16:
		return edm.Int16, nil
	case reflect.Uint16:
		return edm.Int32, nil
	case reflect.Int32:
		return edm.Int32, nil
	case reflect.Uint32:
		return edm.Int64, nil
	case reflect.Int64:
		return edm.Int64, nil
	case reflect.Uint64:
		return "", fmt.Errorf("Edm.Int64 is the maximum supported underlying type; uint64 is not supported")
	case reflect.Int:
		if strconv.IntSize == 32 {
			return edm.Int32, nil
		}
		return edm.Int64, nil
	default:
		return edm.Int64, nil
	}
}
