package database

import (
	"issuetrack/internal/issues"
	"issuetrack/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	if err := db.AutoMigrate(
		&users.User{},
		&issues.Issue{},
	); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
