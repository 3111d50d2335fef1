package diff

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"socialhub/internal/schema"
)

// SchemaDiff represents what the live database is missing compared to the models
type SchemaDiff struct {
	TablesToCreate []string
	TablesToModify []TableDiff
}

// IsEmpty reports whether the database matches the models
func (d *SchemaDiff) IsEmpty() bool {
	if len(d.TablesToCreate) > 0 {
		return false
	}
	for _, t := range d.TablesToModify {
		if !t.IsEmpty() {
			return false
		}
	}
	return true
}

// TableDiff represents the differences in a single existing table
type TableDiff struct {
	Table        string
	ColumnsToAdd []string
	IndexesToAdd []string
}

// IsEmpty checks if a TableDiff is empty
func (d *TableDiff) IsEmpty() bool {
	return len(d.ColumnsToAdd) == 0 && len(d.IndexesToAdd) == 0
}

// SchemaComparer compares the live schema against parsed models through
// gorm's dialect-aware Migrator
type SchemaComparer struct {
	db *gorm.DB
}

// NewSchemaComparer creates a new schema comparer
func NewSchemaComparer(db *gorm.DB) *SchemaComparer {
	return &SchemaComparer{db: db}
}

// Compare reports tables, columns and indexes declared by the models that
// the database does not have.
func (c *SchemaComparer) Compare(ctx context.Context, tables []*schema.Table) (*SchemaDiff, error) {
	sorted := make([]*schema.Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Table < sorted[j].Table })

	m := c.db.WithContext(ctx).Migrator()
	result := &SchemaDiff{}

	for _, t := range sorted {
		if !m.HasTable(t.Table) {
			result.TablesToCreate = append(result.TablesToCreate, t.Table)
			continue
		}

		td := TableDiff{Table: t.Table}
		for _, col := range t.Columns {
			if !m.HasColumn(t.Model, col.ColumnName()) {
				td.ColumnsToAdd = append(td.ColumnsToAdd, col.ColumnName())
			}
		}
		for _, idx := range t.Indexes() {
			if !m.HasIndex(t.Model, idx.Name) {
				td.IndexesToAdd = append(td.IndexesToAdd, idx.Name)
			}
		}
		if !td.IsEmpty() {
			result.TablesToModify = append(result.TablesToModify, td)
		}
	}

	return result, nil
}
