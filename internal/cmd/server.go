package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/matchday/livebet/internal/betting/gateway"
)

func setupServer(handler *gateway.Handler) *http.Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler:      c.Handler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
