package schema

import (
	"fmt"
	"sort"
	"sync"

	GORMSchema "gorm.io/gorm/schema"
)

var schemaCache = &sync.Map{}

// Table represents a gorm model
type Table struct {
	*GORMSchema.Schema
	Model   interface{}
	Columns []*Column
}

func (t *Table) TableName() string {
	return t.Table
}

func (t *Table) TableColumns() []*Column {
	return t.Columns
}

// Dependencies returns the tables this table references through belongs-to
// associations, excluding itself.
func (t *Table) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	for _, rel := range t.Relationships.BelongsTo {
		if rel.FieldSchema == nil || rel.FieldSchema.Table == t.Table {
			continue
		}
		if !seen[rel.FieldSchema.Table] {
			seen[rel.FieldSchema.Table] = true
			deps = append(deps, rel.FieldSchema.Table)
		}
	}
	sort.Strings(deps)
	return deps
}

// Indexes returns the model's declared indexes ordered by name.
func (t *Table) Indexes() []*GORMSchema.Index {
	indexes := t.ParseIndexes()
	out := make([]*GORMSchema.Index, 0, len(indexes))
	for _, idx := range indexes {
		idx := idx
		out = append(out, &idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func CreateTableFromModel(model interface{}) (*Table, error) {
	modelSchema, err := GORMSchema.Parse(model, schemaCache, GORMSchema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
	}

	columns := make([]*Column, 0, len(modelSchema.Fields))

	for _, field := range modelSchema.Fields {
		// association fields have no column
		if field.DBName == "" {
			continue
		}
		columns = append(columns, &Column{Field: field})
	}

	return &Table{Schema: modelSchema, Model: model, Columns: columns}, nil
}
