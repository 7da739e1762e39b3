package edm

import (
	"testing"
)

func TestParseTypeFromTag(t *testing.T) {
	t.Run("Empty tag", func(t *testing.T) {
		typeName, facets, err := ParseTypeFromTag("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "" {
			t.Errorf("expected empty typeName, got '%s'", typeName)
		}
		if facets.Precision != nil {
			t.Error("expected nil precision")
		}
	})

	t.Run("Type only", func(t *testing.T) {
		typeName, facets, err := ParseTypeFromTag("type=Edm.Decimal")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "Edm.Decimal" {
			t.Errorf("expected typeName 'Edm.Decimal', got '%s'", typeName)
		}
		if facets.Precision != nil {
			t.Error("expected nil precision")
		}
	})

	t.Run("Type with precision and scale", func(t *testing.T) {
		typeName, facets, err := ParseTypeFromTag("type=Edm.Decimal,precision=18,scale=4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "Edm.Decimal" {
			t.Errorf("expected typeName 'Edm.Decimal', got '%s'", typeName)
		}
		if facets.Precision == nil || *facets.Precision != 18 {
			t.Errorf("expected precision 18, got %v", facets.Precision)
		}
		if facets.Scale == nil || *facets.Scale != 4 {
			t.Errorf("expected scale 4, got %v", facets.Scale)
		}
	})

	t.Run("Nullable flag", func(t *testing.T) {
		typeName, facets, err := ParseTypeFromTag("nullable,type=Edm.Date")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "Edm.Date" {
			t.Errorf("expected typeName 'Edm.Date', got '%s'", typeName)
		}
		if !facets.Nullable {
			t.Error("expected Nullable to be true")
		}
	})

	t.Run("MaxLength facet", func(t *testing.T) {
		typeName, facets, err := ParseTypeFromTag("type=Edm.String,maxLength=50")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "Edm.String" {
			t.Errorf("expected typeName 'Edm.String', got '%s'", typeName)
		}
		if facets.MaxLength == nil || *facets.MaxLength != 50 {
			t.Errorf("expected maxLength 50, got %v", facets.MaxLength)
		}
	})

	t.Run("Unicode facet", func(t *testing.T) {
		typeName, facets, err := ParseTypeFromTag("type=Edm.String,unicode=true")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "Edm.String" {
			t.Errorf("expected typeName 'Edm.String', got '%s'", typeName)
		}
		if facets.Unicode == nil || *facets.Unicode != true {
			t.Errorf("expected unicode true, got %v", facets.Unicode)
		}
	})

	t.Run("SRID facet", func(t *testing.T) {
		_, facets, err := ParseTypeFromTag("type=Edm.Geography,srid=4326")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if facets.SRID == nil || *facets.SRID != 4326 {
			t.Errorf("expected srid 4326, got %v", facets.SRID)
		}
	})

	t.Run("Facets without type", func(t *testing.T) {
		typeName, facets, err := ParseTypeFromTag("precision=10,scale=2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "" {
			t.Errorf("expected empty typeName, got '%s'", typeName)
		}
		if facets.Precision == nil || *facets.Precision != 10 {
			t.Errorf("expected precision 10, got %v", facets.Precision)
		}
		if facets.Scale == nil || *facets.Scale != 2 {
			t.Errorf("expected scale 2, got %v", facets.Scale)
		}
	})

	t.Run("Unknown tags are ignored", func(t *testing.T) {
		typeName, _, err := ParseTypeFromTag("key,searchable,type=Edm.String")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "Edm.String" {
			t.Errorf("expected typeName 'Edm.String', got '%s'", typeName)
		}
		// key and searchable should be ignored
	})

	t.Run("Invalid precision value", func(t *testing.T) {
		_, _, err := ParseTypeFromTag("precision=invalid")
		if err == nil {
			t.Error("expected error for invalid precision")
		}
	})

	t.Run("Invalid scale value", func(t *testing.T) {
		_, _, err := ParseTypeFromTag("scale=abc")
		if err == nil {
			t.Error("expected error for invalid scale")
		}
	})

	t.Run("Real world example from user", func(t *testing.T) {
		// Revenue decimal.Decimal  `json:"Revenue" odata:"type=Edm.Decimal,precision=18,scale=4"`
		typeName, facets, err := ParseTypeFromTag("type=Edm.Decimal,precision=18,scale=4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "Edm.Decimal" {
			t.Errorf("expected typeName 'Edm.Decimal', got '%s'", typeName)
		}
		if facets.Precision == nil || *facets.Precision != 18 {
			t.Errorf("expected precision 18, got %v", facets.Precision)
		}
		if facets.Scale == nil || *facets.Scale != 4 {
			t.Errorf("expected scale 4, got %v", facets.Scale)
		}
	})

	t.Run("Variable scale", func(t *testing.T) {
		typeName, facets, err := ParseTypeFromTag("type=Edm.Decimal,precision=10,scale=variable")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typeName != "Edm.Decimal" {
			t.Errorf("expected typeName 'Edm.Decimal', got '%s'", typeName)
		}
		if !facets.ScaleVariable {
			t.Error("expected ScaleVariable to be true")
		}
		if facets.Scale != nil {
			t.Errorf("expected nil scale, got %v", *facets.Scale)
		}
	})
}
