package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Optional .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/bus-seat-reservation/internal/booking"    // Lock-to-booking finalizer
	"github.com/iliyamo/bus-seat-reservation/internal/config"     // Internal config loader
	"github.com/iliyamo/bus-seat-reservation/internal/database"   // MySQL connection helper
	"github.com/iliyamo/bus-seat-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/bus-seat-reservation/internal/hub"        // Trip-scoped event fan-out
	"github.com/iliyamo/bus-seat-reservation/internal/lock"       // Seat lock manager and sweeper
	"github.com/iliyamo/bus-seat-reservation/internal/middleware" // Rate limit and cache middleware
	"github.com/iliyamo/bus-seat-reservation/internal/queue"      // Booking-confirmed consumer
	"github.com/iliyamo/bus-seat-reservation/internal/repository" // Data access layer
	"github.com/iliyamo/bus-seat-reservation/internal/router"     // Internal router setup
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient() // nil disables caching and rate limiting
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	// Event broadcaster: one run loop fans committed transitions out to
	// every subscribed seat-map session.
	h := hub.New()
	go h.Run()

	seatRepo := repository.NewSeatRepo(db)
	tripRepo := repository.NewTripRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	locks := lock.NewManager(seatRepo, h, cfg.LockTTL)
	sweeper := lock.NewSweeper(seatRepo, h, cfg.SweepInterval)
	sweeper.Start() // reclaims abandoned locks even if clients never release
	defer sweeper.Stop()

	finalizer := booking.NewFinalizer(db, seatRepo, bookingRepo, locks, h)

	// Background consumer appends confirmed bookings to logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	tripHandler := handler.NewTripHandler(tripRepo, seatRepo)
	resHandler := handler.NewReservationHandler(seatRepo, tripRepo, bookingRepo, locks, finalizer)
	evHandler := handler.NewEventsHandler(h, tripRepo)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e, tripHandler, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterReservation(e, resHandler, evHandler, tripHandler, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
