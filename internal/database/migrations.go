package database

import (
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
// Users come first so every foreign key target exists.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Blog{},
		&models.BlogLike{},
		&models.Job{},
		&models.JobApplication{},
		&models.Notification{},
	)
}
