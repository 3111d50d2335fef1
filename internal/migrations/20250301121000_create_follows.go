package migrations

import (
	"gorm.io/gorm"

	"socialhub/internal/migration"
	"socialhub/internal/models"
)

func init() {
	migration.Register(&migration.Migration{
		Version: "20250301121000",
		Name:    "create_follows",
		Up: func(db *gorm.DB) error {
			return db.Migrator().CreateTable(&models.Follows{})
		},
		Down: func(db *gorm.DB) error {
			return db.Migrator().DropTable(&models.Follows{})
		},
	})
}
