package migrations

import (
	"gorm.io/gorm"

	"socialhub/internal/migration"
	"socialhub/internal/models"
)

func init() {
	migration.Register(&migration.Migration{
		Version: "20250301121500",
		Name:    "create_notifications",
		Up: func(db *gorm.DB) error {
			return db.Migrator().CreateTable(&models.Notification{})
		},
		Down: func(db *gorm.DB) error {
			return db.Migrator().DropTable(&models.Notification{})
		},
	})
}
