package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"    // loads .env files in local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/heewon-dev/community-hub/internal/config"
	"github.com/heewon-dev/community-hub/internal/database"
	"github.com/heewon-dev/community-hub/internal/handler"
	"github.com/heewon-dev/community-hub/internal/middleware"
	"github.com/heewon-dev/community-hub/internal/queue"
	"github.com/heewon-dev/community-hub/internal/realtime"
	"github.com/heewon-dev/community-hub/internal/repository"
	"github.com/heewon-dev/community-hub/internal/router"
	"github.com/heewon-dev/community-hub/internal/service"
)

func main() {
	// .env is optional; real deployments inject variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and response caching.  A nil client just
	// disables both middlewares.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	seats := repository.NewSeatRepo(db)
	recruits := repository.NewRecruitRepo(db)
	members := repository.NewRecruitMemberRepo(db)
	messages := repository.NewMessageRepo(db)

	// Realtime hub and the services on top of the repositories.
	hub := realtime.NewHub()
	defer hub.Close()
	notifier := service.NewNotifier(hub)
	gate := service.NewMembershipGate(recruits, members, notifier)
	reservations := service.NewReservationManager(seats)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background expiry sweep: reclaims lapsed seat holds and purges
	// stale refresh tokens on the same timer.
	sweeper := service.NewSweeper(reservations, tokens, cfg.SweepInterval)
	go sweeper.Run(ctx)

	// Notification journal consumer.  Runs its own reconnect loop; a
	// missing broker only costs the audit journal, not the API.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer: %v", err)
		}
	}()

	e := echo.New()

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	seatH := handler.NewSeatHandler(reservations, seats)
	recruitH := handler.NewRecruitHandler(recruits, members, gate)
	chatH := handler.NewChatHandler(messages, gate, hub)
	socketH := handler.NewSocketHandler(cfg.JWTSecret, hub, gate)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterSeats(e, seatH, cfg.JWTSecret, rl, cache)
	router.RegisterRecruits(e, recruitH, chatH, cfg.JWTSecret)
	router.RegisterRealtime(e, socketH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
