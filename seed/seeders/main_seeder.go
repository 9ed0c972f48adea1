package seeders

import (
	"log"

	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db *gorm.DB
}

// NewMainSeeder creates a new main seeder
func NewMainSeeder(db *gorm.DB) *MainSeeder {
	return &MainSeeder{db: db}
}

// SeedAll runs all seeders in the correct order
func (s *MainSeeder) SeedAll() error {
	log.Println("Starting database seeding...")

	questionSeeder := NewQuestionSeeder(s.db)
	if err := questionSeeder.SeedQuestions(); err != nil {
		log.Printf("Question seeding failed: %v", err)
		return err
	}

	userSeeder := NewUserSeeder(s.db)
	if err := userSeeder.SeedUsers(); err != nil {
		log.Printf("User seeding failed: %v", err)
		return err
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

// SeedQuestionsOnly seeds only the question bank
func (s *MainSeeder) SeedQuestionsOnly() error {
	questionSeeder := NewQuestionSeeder(s.db)
	return questionSeeder.SeedQuestions()
}

// SeedUsersOnly seeds only demo users
func (s *MainSeeder) SeedUsersOnly() error {
	userSeeder := NewUserSeeder(s.db)
	return userSeeder.SeedUsers()
}
