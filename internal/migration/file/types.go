package file

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"socialhub/internal/migration"
)

// VersionFormat is the time layout of migration versions
const VersionFormat = "20060102150405"

var fileNamePattern = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.go$`)

// MigrationFile represents a single migration file
type MigrationFile struct {
	Path      string    // Full path to the migration file
	Version   string    // Migration version (e.g., timestamp)
	Name      string    // Migration name
	CreatedAt time.Time // Parsed from the version
}

// MigrationLoader finds migration source files in a directory
type MigrationLoader struct {
	directory string
}

// NewMigrationLoader creates a new migration loader
func NewMigrationLoader(directory string) *MigrationLoader {
	return &MigrationLoader{directory: directory}
}

// LoadFiles returns the migration files in the directory ordered by
// version. Go files that do not follow the <version>_<name>.go layout
// (doc.go, tests) are skipped. A missing directory yields no files.
func (l *MigrationLoader) LoadFiles() ([]*MigrationFile, error) {
	entries, err := os.ReadDir(l.directory)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []*MigrationFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, "_test.go") {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		createdAt, err := time.Parse(VersionFormat, m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version in %s: %w", name, err)
		}
		files = append(files, &MigrationFile{
			Path:      filepath.Join(l.directory, name),
			Version:   m[1],
			Name:      m[2],
			CreatedAt: createdAt,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// CheckRegistered reports migration files whose version is not registered,
// which happens when a file was created after the binary was built.
func (l *MigrationLoader) CheckRegistered(migrations []*migration.Migration) error {
	files, err := l.LoadFiles()
	if err != nil {
		return err
	}

	registered := make(map[string]string, len(migrations))
	for _, m := range migrations {
		registered[m.Version] = m.Name
	}

	var missing []string
	for _, f := range files {
		name, ok := registered[f.Version]
		if !ok {
			missing = append(missing, filepath.Base(f.Path))
			continue
		}
		if name != f.Name {
			return fmt.Errorf("migration %s is registered as %q but the file is named %q", f.Version, name, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("migration files not registered in this build (rebuild to include them): %s", strings.Join(missing, ", "))
	}
	return nil
}
