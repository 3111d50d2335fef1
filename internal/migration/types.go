package migration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migration represents a single database migration
type Migration struct {
	Version string // Unique version identifier (e.g., timestamp)
	Name    string // Human-readable name of the migration
	Up      func(*gorm.DB) error
	Down    func(*gorm.DB) error
}

// MigrationRecord represents a record of an applied migration
type MigrationRecord struct {
	Version   string    `gorm:"primaryKey;size:32"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// Status pairs a known migration with its applied record, if any.
type Status struct {
	Migration *Migration
	Applied   bool
	AppliedAt time.Time
}

// Global migration registry
var (
	globalMigrations = make([]*Migration, 0)
	registryMutex    sync.RWMutex
)

// Register adds a migration to the global registry. Migration packages call
// it from init.
func Register(migration *Migration) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	globalMigrations = append(globalMigrations, migration)
}

// Registered returns all registered migrations ordered by version
func Registered() []*Migration {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	migrations := make([]*Migration, len(globalMigrations))
	copy(migrations, globalMigrations)
	sortByVersion(migrations)
	return migrations
}

// ResetMigrations clears the global migration registry (for testing)
func ResetMigrations() {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	globalMigrations = make([]*Migration, 0)
}

func sortByVersion(migrations []*Migration) {
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
}

// Validate checks that every migration has a version, a name, both
// directions, and that no version is used twice.
func Validate(migrations []*Migration) error {
	seen := make(map[string]string)
	for _, m := range migrations {
		if m.Version == "" {
			return fmt.Errorf("migration %q has no version", m.Name)
		}
		if m.Name == "" {
			return fmt.Errorf("migration %s has no name", m.Version)
		}
		if m.Up == nil || m.Down == nil {
			return fmt.Errorf("migration %s_%s must define both Up and Down", m.Version, m.Name)
		}
		if other, ok := seen[m.Version]; ok {
			return fmt.Errorf("duplicate migration version %s (%s and %s)", m.Version, other, m.Name)
		}
		seen[m.Version] = m.Name
	}
	return nil
}

// Migrator handles the execution of migrations
type Migrator struct {
	db         *gorm.DB
	migrations []*Migration
	logger     *zap.Logger
	now        func() time.Time
}

// NewMigrator creates a migrator over the globally registered migrations.
// A nil logger falls back to zap's global logger.
func NewMigrator(db *gorm.DB, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.L()
	}
	return &Migrator{
		db:         db,
		migrations: Registered(),
		logger:     logger,
		now:        time.Now,
	}
}

// Register adds a migration to the migrator
func (m *Migrator) Register(migration *Migration) {
	m.migrations = append(m.migrations, migration)
	sortByVersion(m.migrations)
}

// Migrations returns the migrations known to this migrator in version order.
func (m *Migrator) Migrations() []*Migration {
	out := make([]*Migration, len(m.migrations))
	copy(out, m.migrations)
	return out
}

// EnsureVersionTable creates the version tracking table if it doesn't exist
func (m *Migrator) EnsureVersionTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// History returns applied migration records, most recent first
func (m *Migrator) History(ctx context.Context) ([]MigrationRecord, error) {
	if err := m.EnsureVersionTable(ctx); err != nil {
		return nil, err
	}

	var records []MigrationRecord
	if err := m.db.WithContext(ctx).Order("applied_at DESC").Order("version DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get migration history: %w", err)
	}
	return records, nil
}

// Status reports every known migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	records, err := m.History(ctx)
	if err != nil {
		return nil, err
	}

	applied := make(map[string]time.Time, len(records))
	for _, record := range records {
		applied[record.Version] = record.AppliedAt
	}

	statuses := make([]Status, 0, len(m.migrations))
	for _, mr := range m.migrations {
		at, ok := applied[mr.Version]
		statuses = append(statuses, Status{Migration: mr, Applied: ok, AppliedAt: at})
	}
	return statuses, nil
}

// Pending returns the migrations that have not been applied yet
func (m *Migrator) Pending(ctx context.Context) ([]*Migration, error) {
	statuses, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	var pending []*Migration
	for _, s := range statuses {
		if !s.Applied {
			pending = append(pending, s.Migration)
		}
	}
	return pending, nil
}

// Up applies all pending migrations, each in its own transaction, and
// returns the ones that were applied.
func (m *Migrator) Up(ctx context.Context) ([]*Migration, error) {
	if err := Validate(m.migrations); err != nil {
		return nil, err
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var done []*Migration
	for _, mr := range pending {
		m.logger.Info("applying migration", zap.String("version", mr.Version), zap.String("name", mr.Name))

		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := mr.Up(tx); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", mr.Name, err)
			}

			record := MigrationRecord{
				Version:   mr.Version,
				Name:      mr.Name,
				AppliedAt: m.now(),
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", mr.Name, err)
			}
			return nil
		})
		if err != nil {
			return done, err
		}
		done = append(done, mr)
	}
	return done, nil
}

// Down rolls back the last applied migration and returns it. It returns
// nil when nothing has been applied.
func (m *Migrator) Down(ctx context.Context) (*Migration, error) {
	records, err := m.History(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	last := records[0]

	// Find the corresponding migration
	var target *Migration
	for _, mr := range m.migrations {
		if mr.Version == last.Version {
			target = mr
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("migration for version %s not found", last.Version)
	}

	m.logger.Info("reverting migration", zap.String("version", target.Version), zap.String("name", target.Name))

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", target.Name, err)
		}
		if err := tx.Delete(&last).Error; err != nil {
			return fmt.Errorf("failed to remove migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// ModelRegistry - the application sets this in its main.go
type ModelRegistry interface {
	GetModels() map[string]interface{}
}

// GlobalModelRegistry is consulted by the parser and generator
var GlobalModelRegistry ModelRegistry

// ValidateRegistry checks that a registry was provided
func ValidateRegistry() error {
	if GlobalModelRegistry == nil {
		return fmt.Errorf("no model registry provided. Please implement migration.ModelRegistry and set it in your main.go")
	}
	return nil
}
