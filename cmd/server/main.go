package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/LTG-OPs/planning-poker/config"
	"github.com/LTG-OPs/planning-poker/handlers"
	"github.com/LTG-OPs/planning-poker/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create a new Gin router
	router := gin.Default()

	// Create the session registry; its reclamation loop starts with the
	// first session and stops with the last.
	reg := registry.New(registry.Policy{
		SweepInterval:   cfg.SweepInterval,
		MaxInactivity:   cfg.MaxInactivity,
		DeleteWhenEmpty: cfg.DeleteWhenEmpty,
		JoinCodeLength:  cfg.JoinCodeLength,
	})
	defer reg.StopCleanup()

	sessionHandler := handlers.NewSessionHandler(reg)
	handlers.RegisterRoutes(router, sessionHandler)

	// Start the server
	log.Printf("Starting server on %s", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
