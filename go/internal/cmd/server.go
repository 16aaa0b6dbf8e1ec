package main

import (
	"net/http"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/treadpro/go/internal/api"
	"github.com/mcdev12/treadpro/go/internal/config"
	"github.com/mcdev12/treadpro/go/internal/gateway"
)

func setupServer(cfg *config.Config, services *Services) *http.Server {
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

	handler := api.NewHandler(services.Sessions, services.Runs)
	ws := gateway.NewWebSocketHandler(services.Connections, services.Runs)
	router := api.NewRouter(handler, ws.RegisterRoutes)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:        cfg.Addr(),
		Handler:     h2c.NewHandler(c.Handler(router), &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}
