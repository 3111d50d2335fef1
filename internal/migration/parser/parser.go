package parser

import (
	"fmt"
	"sort"

	"socialhub/internal/migration"
	"socialhub/internal/schema"
)

// ModelParser turns the registered models into parsed tables
type ModelParser struct {
	models map[string]interface{}
}

func NewModelParser(registry migration.ModelRegistry) (*ModelParser, error) {
	if registry == nil {
		if err := migration.ValidateRegistry(); err != nil {
			return nil, err
		}
		registry = migration.GlobalModelRegistry
	}

	p := &ModelParser{models: registry.GetModels()}
	if len(p.models) == 0 {
		return nil, fmt.Errorf("no models found in registry")
	}
	return p, nil
}

// Parse returns every registered model keyed by its registry name
func (p *ModelParser) Parse() (map[string]*schema.Table, error) {
	tables := make(map[string]*schema.Table, len(p.models))
	for name, model := range p.models {
		table, err := schema.CreateTableFromModel(model)
		if err != nil {
			return nil, fmt.Errorf("failed to parse model %s with GORM: %w. Check for unsupported field types or incorrect struct tags", name, err)
		}
		if err := validateTable(table); err != nil {
			return nil, fmt.Errorf("failed to validate schema for model %s: %w", name, err)
		}
		tables[name] = table
	}
	return tables, nil
}

// Lookup parses only the named models, in the order given
func (p *ModelParser) Lookup(names ...string) ([]*schema.Table, error) {
	tables := make([]*schema.Table, 0, len(names))
	for _, name := range names {
		model, ok := p.models[name]
		if !ok {
			return nil, fmt.Errorf("model %s is not in the registry (known: %v)", name, p.Names())
		}
		table, err := schema.CreateTableFromModel(model)
		if err != nil {
			return nil, fmt.Errorf("failed to parse model %s: %w", name, err)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// Names returns the registry names in sorted order
func (p *ModelParser) Names() []string {
	names := make([]string, 0, len(p.models))
	for name := range p.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateTable ensures the schema is properly formed
func validateTable(t *schema.Table) error {
	if t.Table == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(t.PrimaryFields) == 0 {
		return fmt.Errorf("table %s has no primary key", t.Table)
	}

	seen := make(map[string]bool)
	for _, col := range t.Columns {
		if seen[col.DBName] {
			return fmt.Errorf("duplicate column name %s in table %s", col.DBName, t.Table)
		}
		seen[col.DBName] = true
	}

	for _, rel := range t.Relationships.BelongsTo {
		for _, ref := range rel.References {
			if ref.ForeignKey != nil && !seen[ref.ForeignKey.DBName] {
				return fmt.Errorf("foreign key column %s does not exist in table %s", ref.ForeignKey.DBName, t.Table)
			}
		}
	}
	return nil
}
