package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/taskminder-api/internal/application/notification"
	"github.com/taskminder-api/internal/config"
	"github.com/taskminder-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/taskminder-api/internal/infrastructure/jwt"
	"github.com/taskminder-api/internal/infrastructure/smtp"
	"github.com/taskminder-api/internal/pkg/password"
	transporthttp "github.com/taskminder-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg.JWTSecret, cfg.VerificationTTL, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	mailer := smtp.NewMailer(cfg)
	hasher := password.NewHasher(cfg.BcryptCost)

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	todoRepo := dynamo.NewTodoRepo(dynamoClient, cfg.DynamoTables.Todos)

	deps := &transporthttp.Deps{
		UserRepo:    userRepo,
		TodoRepo:    todoRepo,
		Mailer:      mailer,
		JWTProvider: jwtProvider,
		Hasher:      hasher,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// The reminder sweep runs on its own timer, independent of request traffic.
	sweeper := notification.NewSweeper(notification.SweeperDeps{
		UserRepo:    userRepo,
		TodoRepo:    todoRepo,
		Mailer:      mailer,
		Interval:    cfg.SweepInterval,
		MailTimeout: cfg.MailTimeout,
	})
	sweeper.Start(context.Background())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	sweeper.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
