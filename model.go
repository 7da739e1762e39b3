package odata

import (
	"io"

	"github.com/nlstn/go-odata-query/internal/metadata"
)

// Model is a read-only entity data model. It is safe for concurrent use.
type Model = metadata.Model

// ModelBuilder assembles a Model from Go structs or explicit type definitions.
//
// Example:
//
//	type Product struct {
//	    ID    int             `json:"ID" odata:"key"`
//	    Name  string          `json:"Name" odata:"maxLength=50,searchable"`
//	    Price decimal.Decimal `json:"Price" odata:"precision=10,scale=2,nullable"`
//	}
//
//	model, err := odata.NewModelBuilder("Sales").AddEntity(&Product{}).Build()
type ModelBuilder = metadata.Builder

// NewModelBuilder creates a builder whose unqualified type names live in namespace.
func NewModelBuilder(namespace string) *ModelBuilder {
	return metadata.NewBuilder(namespace)
}

// LoadModel reads a YAML model description from path.
func LoadModel(path string) (*Model, error) {
	return metadata.LoadFile(path)
}

// ReadModel reads a YAML model description from r.
func ReadModel(r io.Reader) (*Model, error) {
	return metadata.Load(r)
}
