package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"taskdeck/taskdeck/broker"
	"taskdeck/taskdeck/config"
	"taskdeck/taskdeck/database"
	"taskdeck/taskdeck/middleware"
	"taskdeck/taskdeck/routes"
	"taskdeck/taskdeck/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db, err := database.Setup(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// The API works without the broker; only live event delivery is lost.
	if err := broker.InitProducer(cfg.NATSUrl); err != nil {
		log.Printf("Warning: failed to connect to NATS: %v", err)
		log.Println("The application will continue, but event publishing is disabled")
	} else {
		defer broker.CloseProducer()
	}

	eventStream := services.NewEventStreamService()
	services.EventStreamServiceInstance = eventStream
	eventStream.Start()
	defer eventStream.Stop()

	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpirationHours)
	services.AuthServiceInstance = authService

	userService := services.NewUserService(authService)
	services.UserServiceInstance = userService

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	routes.RegisterAuthRoutes(router, db, userService, authService)
	routes.RegisterEventRoutes(router, authService, eventStream)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	routes.RegisterTaskRoutes(api, db, services.TaskServiceInstance)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down server...")
		eventStream.Stop()
		broker.CloseProducer()
		os.Exit(0)
	}()

	log.Printf("API server is running on port %s", cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
