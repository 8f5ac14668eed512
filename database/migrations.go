package database

import (
	"taskdeck/taskdeck/models"

	"gorm.io/gorm"
)

// RunMigrations keeps the schema in sync with the model definitions.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.Event{},
	)
}
