package commands

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Opener returns a database connection for commands that need one
type Opener func(ctx context.Context) (*gorm.DB, error)

func validateMigrationsPath(path string) (string, error) {
	cleanPath := filepath.Clean(path)

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", fmt.Errorf("invalid migrations path: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %v", err)
	}

	if !strings.HasPrefix(absPath, wd) {
		return "", fmt.Errorf("migrations path must be within working directory")
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return "", fmt.Errorf("migrations path is not writable: %v", err)
	}

	return absPath, nil
}

func getMigrationsDir() string {
	dir := os.Getenv("MIGRATIONS_PATH")
	if dir == "" {
		dir = filepath.Join("internal", "migrations")
	}
	return dir
}

func validateModelPath(path string) (string, error) {
	if path == "" {
		path = os.Getenv("GORM_MODELS_PATH")
	}
	if path == "" {
		path = filepath.Join("internal", "models")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("invalid model path: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	if !strings.HasPrefix(absPath, wd) {
		return "", fmt.Errorf("model path must be within working directory")
	}

	return absPath, nil
}

func createModelRegisterFile(dirPath string) (string, int, error) {
	filePath := filepath.Join(dirPath, "models_registry.go")

	packageName := filepath.Base(dirPath)
	names, err := getModels(dirPath)
	if err != nil {
		return "", 0, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\nvar ModelTypeRegistry = map[string]interface{}{\n", packageName)
	for _, name := range names {
		fmt.Fprintf(&b, "\t%q: %s{},\n", name, name)
	}
	b.WriteString("}\n")

	if err := os.WriteFile(filePath, []byte(b.String()), 0644); err != nil {
		return "", 0, fmt.Errorf("failed to create model registry file: %w", err)
	}

	return filePath, len(names), nil
}

func getModels(dirPath string) ([]string, error) {
	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var allModels []string
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || name == "models_registry.go" {
			continue
		}
		modelNames, err := modelParser(filepath.Join(dirPath, name))
		if err != nil {
			return nil, fmt.Errorf("could not parse models from %s: %w", name, err)
		}
		allModels = append(allModels, modelNames...)
	}
	sort.Strings(allModels)
	return allModels, nil
}

// modelParser returns the exported struct types that either embed
// gorm.Model or carry a gorm struct tag on one of their fields
func modelParser(file string) ([]string, error) {
	var modelNames []string

	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, file, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	ast.Inspect(node, func(n ast.Node) bool {
		typeSpec, ok := n.(*ast.TypeSpec)
		if !ok || !typeSpec.Name.IsExported() {
			return true
		}
		structType, ok := typeSpec.Type.(*ast.StructType)
		if !ok {
			return true
		}
		if isGormModel(structType) {
			modelNames = append(modelNames, typeSpec.Name.Name)
		}
		return true
	})
	return modelNames, nil
}

func isGormModel(structType *ast.StructType) bool {
	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			if sel, ok := field.Type.(*ast.SelectorExpr); ok {
				if x, ok := sel.X.(*ast.Ident); ok && x.Name == "gorm" && sel.Sel.Name == "Model" {
					return true
				}
			}
		}
		if field.Tag != nil && strings.Contains(field.Tag.Value, "gorm:") {
			return true
		}
	}
	return false
}
