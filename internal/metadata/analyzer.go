package metadata

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/nlstn/go-odata-query/internal/edm"
)

// AddEntity analyzes a Go struct and registers it as an entity type together
// with an entity set named after the pluralized type name. Struct fields that
// refer to other structs are registered recursively: structs with a key become
// navigation targets, keyless structs become complex types.
func (b *Builder) AddEntity(entity interface{}) *Builder {
	entityType := reflect.TypeOf(entity)
	if entityType == nil {
		return b.fail("entity must not be nil")
	}
	if entityType.Kind() == reflect.Ptr {
		entityType = entityType.Elem()
	}
	if entityType.Kind() != reflect.Struct {
		return b.fail("entity must be a struct, got %s", entityType.Kind())
	}

	t, err := b.analyzeStruct(entityType, true)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if _, exists := b.model.entitySets[pluralize(t.Name)]; !exists {
		b.AddEntitySet(pluralize(t.Name), t.FullName())
	}
	return b
}

// AddComplex analyzes a Go struct and registers it as a complex type.
func (b *Builder) AddComplex(value interface{}) *Builder {
	complexType := reflect.TypeOf(value)
	if complexType != nil && complexType.Kind() == reflect.Ptr {
		complexType = complexType.Elem()
	}
	if complexType == nil || complexType.Kind() != reflect.Struct {
		return b.fail("complex type must be a struct")
	}
	if _, err := b.analyzeStruct(complexType, false); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// analyzeStruct builds a StructuredType from a struct type and registers it.
// Already registered types are returned as is.
func (b *Builder) analyzeStruct(structType reflect.Type, isEntity bool) (*StructuredType, error) {
	if existing, ok := b.model.structured[qualify(b.model.namespace, structType.Name())]; ok {
		return existing, nil
	}

	t := &StructuredType{
		Namespace: b.model.namespace,
		Name:      structType.Name(),
		IsEntity:  isEntity,
	}
	// Register before walking fields so self references terminate.
	b.model.structured[t.FullName()] = t

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() || field.Tag.Get("odata") == "-" {
			continue
		}
		if err := b.analyzeField(t, field); err != nil {
			return nil, err
		}
	}

	if isEntity && len(t.Keys) == 0 {
		for _, p := range t.Properties {
			if p.Name == "ID" {
				t.Keys = append(t.Keys, p.Name)
				break
			}
		}
		if len(t.Keys) == 0 {
			return nil, fmt.Errorf("entity %s must have at least one key property (use `odata:\"key\"` tag or name field 'ID')", t.Name)
		}
	}
	return t, nil
}

// analyzeField adds a structural or navigation property for one struct field.
func (b *Builder) analyzeField(t *StructuredType, field reflect.StructField) error {
	name := getJsonName(field)
	tag := field.Tag.Get("odata")

	fieldType := field.Type
	isSlice := fieldType.Kind() == reflect.Slice && fieldType.Elem().Kind() != reflect.Uint8
	if isSlice {
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}

	if fieldType.Kind() == reflect.Struct && !isPrimitiveStruct(fieldType) {
		if hasKey(fieldType) && !hasTagFlag(tag, "complex") {
			if _, err := b.analyzeStruct(fieldType, true); err != nil {
				return err
			}
			t.NavigationProperties = append(t.NavigationProperties, &NavigationProperty{
				Name:       name,
				Target:     qualify(b.model.namespace, fieldType.Name()),
				Collection: isSlice,
				Nullable:   !isSlice && field.Type.Kind() == reflect.Ptr,
				FieldName:  field.Name,
			})
			return nil
		}
		if _, err := b.analyzeStruct(fieldType, false); err != nil {
			return err
		}
		t.Properties = append(t.Properties, &Property{
			Name:       name,
			Type:       qualify(b.model.namespace, fieldType.Name()),
			Collection: isSlice,
			Nullable:   field.Type.Kind() == reflect.Ptr,
			FieldName:  field.Name,
		})
		return nil
	}

	property := &Property{
		Name:       name,
		Collection: isSlice,
		Nullable:   field.Type.Kind() == reflect.Ptr,
		FieldName:  field.Name,
	}

	typeName, facets, err := edm.ParseTypeFromTag(tag)
	if err != nil {
		return fmt.Errorf("type %s, field %s: %w", t.Name, field.Name, err)
	}
	property.Facets = facets
	if facets.Nullable {
		property.Nullable = true
	}
	property.Facets.Nullable = property.Nullable

	switch {
	case typeName != "":
		property.Type = typeName
	case tagValue(tag, "enum") != "":
		property.Type = tagValue(tag, "enum")
	default:
		enumName, enumErr := b.goEnumType(fieldType, hasTagFlag(tag, "flags"))
		if enumErr != nil {
			return fmt.Errorf("type %s, field %s: %w", t.Name, field.Name, enumErr)
		}
		if enumName != "" {
			property.Type = enumName
			break
		}
		goType := fieldType
		if isSlice {
			goType = field.Type.Elem()
		}
		inferred, inferErr := edm.FromGoType(goType)
		if inferErr != nil {
			return fmt.Errorf("type %s, field %s: %w", t.Name, field.Name, inferErr)
		}
		property.Type = inferred
	}

	for _, part := range strings.Split(tag, ",") {
		switch strings.TrimSpace(part) {
		case "key":
			t.Keys = append(t.Keys, name)
		case "searchable":
			property.Searchable = true
		}
	}

	t.Properties = append(t.Properties, property)
	return nil
}

// isPrimitiveStruct reports struct types that map to a primitive EDM type.
func isPrimitiveStruct(structType reflect.Type) bool {
	_, err := edm.FromGoType(structType)
	return err == nil
}

// hasKey reports whether a struct declares a key, explicitly or by an ID field.
func hasKey(structType reflect.Type) bool {
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Name == "ID" || hasTagFlag(field.Tag.Get("odata"), "key") {
			return true
		}
	}
	return false
}

func hasTagFlag(tag, flag string) bool {
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == flag {
			return true
		}
	}
	return false
}

func tagValue(tag, key string) string {
	for _, part := range strings.Split(tag, ",") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), key+"="); ok {
			return v
		}
	}
	return ""
}

// getJsonName extracts the JSON field name from struct tags
func getJsonName(field reflect.StructField) string {
	jsonTag := field.Tag.Get("json")
	if jsonTag == "" {
		return field.Name
	}

	// Handle json:",omitempty" or json:"fieldname,omitempty"
	parts := strings.Split(jsonTag, ",")
	if len(parts) > 0 && parts[0] != "" && parts[0] != "-" {
		return parts[0]
	}

	return field.Name
}

// pluralize creates a simple pluralized form of the entity name
func pluralize(word string) string {
	if word == "" {
		return word
	}

	switch {
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(rune(word[len(word)-2])):
		// Only change y to ies if preceded by a consonant (e.g., "Category" -> "Categories")
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") || strings.HasSuffix(word, "z") ||
		strings.HasSuffix(word, "ch") || strings.HasSuffix(word, "sh"):
		return word + "es"
	default:
		return word + "s"
	}
}

// isVowel checks if a rune is a vowel
func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	default:
		return false
	}
}
