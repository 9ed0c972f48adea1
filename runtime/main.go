package main

import (
	"os"

	"github.com/usmle-trivia/quiz_api/services"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	var dbSvc context.Service
	if os.Getenv("DB_DRIVER") == "postgres" {
		dbSvc = &services.PostgresService{}
	} else {
		dbSvc = &services.SqliteService{}
	}

	ctx, err := context.NewCtx(
		dbSvc,
		&services.RedisService{},
		&services.JWTService{},
		&services.AuthService{},
		&services.RateLimitService{},
		&services.MonitoringService{},

		&services.QuestionService{},
		&services.TrackerService{},
		&services.UserService{},
		&services.QuizService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err)
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err)
		return
	}
}
