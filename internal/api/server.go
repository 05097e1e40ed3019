package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"slotline/internal/cache"
	"slotline/internal/config"
	"slotline/internal/database"
	"slotline/internal/external"
	"slotline/internal/handlers"
	"slotline/internal/lock"
	"slotline/internal/messaging"
	"slotline/internal/middleware"
	"slotline/internal/repository"
	"slotline/internal/service"
)

// Server wires the HTTP API together: database, Redis (lock + listing
// cache), NATS, external clients, repositories and the lifecycle service.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	redis    *redis.Client
	nats     *messaging.NATSClient
	services *service.Services
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	repos := repository.NewRepositories(db)

	services := service.NewServices(service.Deps{
		Bookings:     repos.Bookings,
		Events:       repos.Events,
		Locker:       lock.NewRedisLock(rdb),
		Cache:        cache.New(rdb, cfg.CacheTTL),
		Availability: external.NewAvailabilityClient(cfg.Availability),
		Workers:      external.NewWorkerProfileClient(cfg.WorkerProfile),
		Publisher:    natsClient,
		LockTTL:      cfg.LockTTL,
	})

	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		redis:    rdb,
		nats:     natsClient,
		services: services,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.Identity())
	{
		bookings := api.Group("/bookings")
		{
			bookings.GET("", h.ListBookings)
			bookings.POST("", h.CreateBooking)
			bookings.POST("/validate", h.ValidateBooking)
			bookings.GET("/:bookingId", h.GetBooking)
			bookings.PATCH("/:bookingId/status", h.UpdateBookingStatus)
			bookings.GET("/:bookingId/events", h.ListBookingEvents)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.Health(c.Request.Context())
	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "slotline-api",
		"database": dbHealth,
	})
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter returns the router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes open connections
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
