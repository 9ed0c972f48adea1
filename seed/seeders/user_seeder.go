package seeders

import (
	"log"

	"github.com/google/uuid"
	"github.com/usmle-trivia/quiz_api/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserSeeder creates demo accounts for local development
type UserSeeder struct {
	db *gorm.DB
}

func NewUserSeeder(db *gorm.DB) *UserSeeder {
	return &UserSeeder{db: db}
}

func (s *UserSeeder) SeedUsers() error {
	demoUsers := []struct {
		Email    string
		Username string
	}{
		{Email: "demo@example.com", Username: "demo_student"},
		{Email: "alex@example.com", Username: "alex_md"},
		{Email: "jordan@example.com", Username: "jordan_step1"},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	seeded := 0
	for _, du := range demoUsers {
		var existing model.User
		if err := s.db.Where("email = ?", du.Email).First(&existing).Error; err == nil {
			continue
		}

		id, _ := uuid.NewV7()
		user := model.User{
			ID:       id.String(),
			Email:    du.Email,
			Username: du.Username,
			Password: string(hash),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return err
		}

		statsID, _ := uuid.NewV7()
		stats := model.UserStats{
			ID:     statsID.String(),
			UserID: user.ID,
			Level:  1,
		}
		if err := s.db.Create(&stats).Error; err != nil {
			return err
		}
		seeded++
	}

	log.Printf("Seeded %d demo users", seeded)
	return nil
}
