package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds check constraints and list indexes gorm tags cannot express.
func MigrateConstraints(db *gorm.DB) error {
	statements := []string{
		`DO $$ BEGIN
			ALTER TABLE users ADD CONSTRAINT chk_users_role
			CHECK (role IN ('user', 'admin', 'super_admin'));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		`DO $$ BEGIN
			ALTER TABLE issues ADD CONSTRAINT chk_issues_priority
			CHECK (priority IN ('LOW', 'MEDIUM', 'HIGH'));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		`DO $$ BEGIN
			ALTER TABLE issues ADD CONSTRAINT chk_issues_status
			CHECK (status IN ('OPEN', 'IN_PROGRESS', 'CLOSED'));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		`CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues (created_at DESC);`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
