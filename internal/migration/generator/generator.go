package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"text/template"
	"time"

	"socialhub/internal/migration/file"
	"socialhub/internal/schema"
)

// VersionFormat is the time layout used for migration versions
const VersionFormat = file.VersionFormat

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Generator helps create new migration files
type Generator struct {
	MigrationsDir string
	PackageName   string
	ModelsImport  string
	Now           func() time.Time
}

// NewGenerator creates a new migration generator
func NewGenerator(migrationsDir string) *Generator {
	return &Generator{
		MigrationsDir: migrationsDir,
		PackageName:   "migrations",
		ModelsImport:  "socialhub/internal/models",
		Now:           time.Now,
	}
}

type migrationFile struct {
	Package      string
	ModelsImport string
	ModelsAlias  string
	Version      string
	Name         string
	Create       []string
	Drop         []string
}

var migrationTemplate = template.Must(template.New("migration").Parse(`package {{.Package}}

import (
	"gorm.io/gorm"

	"socialhub/internal/migration"
{{- if .Create}}
	"{{.ModelsImport}}"
{{- end}}
)

func init() {
	migration.Register(&migration.Migration{
		Version: "{{.Version}}",
		Name:    "{{.Name}}",
		Up: func(db *gorm.DB) error {
{{- if .Create}}
			return db.Migrator().CreateTable({{range $i, $m := .Create}}{{if $i}}, {{end}}&{{$.ModelsAlias}}.{{$m}}{}{{end}})
{{- else}}
			return nil
{{- end}}
		},
		Down: func(db *gorm.DB) error {
{{- if .Drop}}
			return db.Migrator().DropTable({{range $i, $m := .Drop}}{{if $i}}, {{end}}&{{$.ModelsAlias}}.{{$m}}{}{{end}})
{{- else}}
			return nil
{{- end}}
		},
	})
}
`))

// CreateMigration writes an empty migration scaffold and returns its path
func (g *Generator) CreateMigration(name string) (string, error) {
	return g.write(name, nil)
}

// GenerateCreateTables writes a migration that creates the given tables in
// foreign-key order and drops them in reverse.
func (g *Generator) GenerateCreateTables(name string, tables []*schema.Table) (string, error) {
	if len(tables) == 0 {
		return "", fmt.Errorf("no tables to create")
	}
	sorted, err := topoSortTables(tables)
	if err != nil {
		return "", err
	}
	return g.write(name, sorted)
}

func (g *Generator) write(name string, tables []*schema.Table) (string, error) {
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("invalid migration name %q: use lower_snake_case", name)
	}

	version := g.Now().UTC().Format(VersionFormat)
	data := migrationFile{
		Package:      g.PackageName,
		ModelsImport: g.ModelsImport,
		ModelsAlias:  path.Base(g.ModelsImport),
		Version:      version,
		Name:         name,
	}
	for _, t := range tables {
		data.Create = append(data.Create, t.ModelType.Name())
	}
	for i := len(data.Create) - 1; i >= 0; i-- {
		data.Drop = append(data.Drop, data.Create[i])
	}

	var buf bytes.Buffer
	if err := migrationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render migration: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to format migration: %w", err)
	}

	if err := os.MkdirAll(g.MigrationsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	filePath := filepath.Join(g.MigrationsDir, fmt.Sprintf("%s_%s.go", version, name))
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("migration file %s already exists", filePath)
	}
	if err := os.WriteFile(filePath, src, 0644); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return filePath, nil
}

// Topological sort for tables based on foreign key dependencies. Tables
// referenced by a table but not part of the input are assumed to exist.
func topoSortTables(tables []*schema.Table) ([]*schema.Table, error) {
	tableMap := make(map[string]*schema.Table, len(tables))
	for _, t := range tables {
		tableMap[t.Table] = t
	}
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var sorted []*schema.Table
	var visit func(string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("circular dependency detected at table %s", name)
		}
		t, ok := tableMap[name]
		if !ok {
			return nil
		}
		visiting[name] = true
		for _, dep := range t.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		sorted = append(sorted, t)
		return nil
	}
	for _, t := range tables {
		if err := visit(t.Table); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
