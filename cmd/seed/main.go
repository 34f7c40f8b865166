package main

import (
	"context"
	"fmt"
	"log"

	"issuetrack/internal/auth"
	"issuetrack/internal/issues"
	"issuetrack/internal/shared/config"
	"issuetrack/internal/shared/database"
	"issuetrack/internal/users"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// Every seeded account uses this password.
const seedPassword = "password123"

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("Starting issuetrack database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if db == nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err != nil {
		log.Printf("Warning: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	fmt.Println("\nCleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\nSeeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\nSeeding completed.")
}

// CleanDatabase truncates issues before users (foreign key order)
func (s *Seeder) CleanDatabase() error {
	tables := []string{"issues", "users"}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Seeder) SeedAll() error {
	userIDs, err := s.SeedUsers()
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	if err := s.SeedIssues(userIDs); err != nil {
		return fmt.Errorf("failed to seed issues: %w", err)
	}

	// drop cached issue lists so the API sees fresh state
	if rdb := s.db.GetRedis(); rdb != nil {
		if err := rdb.FlushDB(context.Background()).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}
	return nil
}

// SeedUsers creates one account per role
func (s *Seeder) SeedUsers() (map[users.Role]uuid.UUID, error) {
	fmt.Println("  Seeding users...")

	hashed, err := auth.HashPassword(seedPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	usersData := []struct {
		name  string
		email string
		role  users.Role
	}{
		{"Super Admin", "superadmin@example.com", users.RoleSuperAdmin},
		{"Admin", "admin@example.com", users.RoleAdmin},
		{"Regular User", "user@example.com", users.RoleUser},
	}

	ids := make(map[users.Role]uuid.UUID, len(usersData))
	for _, d := range usersData {
		user := users.User{
			ID:       uuid.New(),
			Name:     d.name,
			Email:    d.email,
			Password: hashed,
			Role:     d.role,
		}
		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", d.email, err)
		}
		ids[d.role] = user.ID
		fmt.Printf("    %s (%s)\n", d.email, d.role)
	}
	return ids, nil
}

func (s *Seeder) SeedIssues(userIDs map[users.Role]uuid.UUID) error {
	fmt.Println("  Seeding issues...")

	issuesData := []issues.Issue{
		{
			Title:       "Fix authentication bug",
			Description: "Users are logged out unexpectedly after refreshing the page.",
			Priority:    issues.PriorityHigh,
			UserID:      userIDs[users.RoleUser],
		},
		{
			Title:       "Add pagination to issue list",
			Description: "The issue list should load results page by page.",
			Priority:    issues.PriorityMedium,
			UserID:      userIDs[users.RoleAdmin],
		},
		{
			Title:       "Update UI theme",
			Description: "Refresh colors and typography to match the new brand guide.",
			Priority:    issues.PriorityLow,
			UserID:      userIDs[users.RoleSuperAdmin],
		},
	}

	for i := range issuesData {
		issuesData[i].ID = uuid.New()
		issuesData[i].Status = issues.StatusOpen
		if err := s.db.PostgreSQL.Create(&issuesData[i]).Error; err != nil {
			return fmt.Errorf("failed to create issue %q: %w", issuesData[i].Title, err)
		}
		fmt.Printf("    %s [%s]\n", issuesData[i].Title, issuesData[i].Priority)
	}
	return nil
}
