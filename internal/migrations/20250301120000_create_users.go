package migrations

import (
	"gorm.io/gorm"

	"socialhub/internal/migration"
	"socialhub/internal/models"
)

func init() {
	migration.Register(&migration.Migration{
		Version: "20250301120000",
		Name:    "create_users",
		Up: func(db *gorm.DB) error {
			return db.Migrator().CreateTable(&models.User{})
		},
		Down: func(db *gorm.DB) error {
			return db.Migrator().DropTable(&models.User{})
		},
	})
}
