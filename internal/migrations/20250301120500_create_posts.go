package migrations

import (
	"gorm.io/gorm"

	"socialhub/internal/migration"
	"socialhub/internal/models"
)

func init() {
	migration.Register(&migration.Migration{
		Version: "20250301120500",
		Name:    "create_posts",
		Up: func(db *gorm.DB) error {
			return db.Migrator().CreateTable(&models.Post{}, &models.Comment{}, &models.Like{})
		},
		Down: func(db *gorm.DB) error {
			return db.Migrator().DropTable(&models.Like{}, &models.Comment{}, &models.Post{})
		},
	})
}
