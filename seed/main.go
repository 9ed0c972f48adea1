package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/usmle-trivia/quiz_api/model"
	"github.com/usmle-trivia/quiz_api/seed/seeders"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, questions, users")
		dbPath   = flag.String("db", "", "Sqlite database path (overrides DB_DATABASE env var)")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	db, err := openDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.UserStats{},
		&model.Question{},
		&model.QuizSession{},
		&model.SessionAnswer{},
		&model.SeenQuestion{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		if err := mainSeeder.SeedAll(); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
	case "questions":
		log.Println("Seeding questions only...")
		if err := mainSeeder.SeedQuestionsOnly(); err != nil {
			log.Fatalf("Failed to seed questions: %v", err)
		}
	case "users":
		log.Println("Seeding users only...")
		if err := mainSeeder.SeedUsersOnly(); err != nil {
			log.Fatalf("Failed to seed users: %v", err)
		}
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'questions', or 'users'", *seedType)
	}
}

func openDatabase(sqlitePath string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	if os.Getenv("DB_DRIVER") == "postgres" && sqlitePath == "" {
		dsn := os.Getenv("DATABASE_URL")
		log.Println("Connecting to postgres...")
		return gorm.Open(postgres.Open(dsn), config)
	}

	path := sqlitePath
	if path == "" {
		path = os.Getenv("DB_DATABASE")
		if path == "" {
			path = "quiz_api.db"
		}
	}
	log.Printf("Connecting to sqlite database: %s", path)
	return gorm.Open(sqlite.Open(path), config)
}

func showHelp() {
	log.Println("Usage: seed [-type all|questions|users] [-db path]")
	log.Println("  -type  what to seed (default: all)")
	log.Println("  -db    sqlite database path, overrides DB_DATABASE")
}
