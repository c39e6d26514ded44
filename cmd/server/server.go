package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/cronology/cronology/internal/api"
	"github.com/cronology/cronology/internal/gateway"
)

func setupServer(config Config, apiHandler *api.Handler, wsHandler *gateway.WebSocketHandler) *http.Server {
	mux := http.NewServeMux()

	apiHandler.RegisterRoutes(mux)
	wsHandler.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins:   config.AllowedOrigins,
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}
