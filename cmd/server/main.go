package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-access-control/internal/access"
	"github.com/iliyamo/parking-access-control/internal/config"
	"github.com/iliyamo/parking-access-control/internal/database"
	"github.com/iliyamo/parking-access-control/internal/handler"
	"github.com/iliyamo/parking-access-control/internal/middleware"
	"github.com/iliyamo/parking-access-control/internal/queue"
	"github.com/iliyamo/parking-access-control/internal/repository"
	"github.com/iliyamo/parking-access-control/internal/router"
	queue_publisher "github.com/iliyamo/parking-access-control/internal/service"
)

func main() {
	// .env is optional; container environments inject variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	reservations := repository.NewReservationRepo(db)
	sessions := repository.NewSessionRepo(db)
	lots := repository.NewLotRepo(db)
	users := repository.NewUserRepo(db)

	coordinator := access.NewCoordinator(db, reservations, sessions, lots, queue_publisher.PublishAccessEvent)

	// Audit consumer runs for the life of the process; it reconnects on
	// broker failure and never takes the API down.
	go func() {
		if err := queue.StartAccessConsumer(); err != nil {
			log.Printf("access-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Validator = handler.NewValidator()

	// Rate limit every route: barrier cameras and GPS apps retry through
	// the physical world, the limiter keeps the retries sane.
	if rdb := config.NewRedisClient(); rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	} else {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	ah := handler.NewAccessHandler(coordinator)
	qh := handler.NewQrTokenHandler(coordinator, reservations, time.Duration(cfg.QrTokenTTLMin)*time.Minute)
	sh := handler.NewSessionHandler(sessions)
	authH := handler.NewAuthHandler(cfg, users)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterAccess(e, ah, qh, sh, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
