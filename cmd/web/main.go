package main

import (
	"log"
	"net/http"
	"os"
	probax "probax-client"
	"probax-client/web"

	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
)

func main() {
	logger := probax.NewLogger()
	cfg := probax.LoadConfig()
	service := probax.NewService(cfg,
		probax.WithLogger(logger),
		probax.WithMetrics(probax.NewMetrics(prometheus.DefaultRegisterer)),
	)

	// Create Temporal client
	var temporalClient client.Client
	var err error

	if os.Getenv("TEMPORAL_HOST") == "" {
		log.Printf("TEMPORAL_HOST not set, sessions are disabled and predictions call the backend directly")
	} else {
		temporalClient, err = client.Dial(probax.GetClientOptions(logger))
		if err != nil {
			log.Printf("Warning: Unable to create Temporal client: %v", err)
			log.Printf("Predictions will call the backend directly, sessions are disabled")
			temporalClient = nil
		} else {
			defer temporalClient.Close()
			log.Printf("Successfully connected to Temporal server")
		}
	}

	// Create web handlers with Temporal client (can be nil)
	handlers := web.NewHandlers(temporalClient, service)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting web server on port %s, backend %s", port, service.Backend.BaseURL())

	if err := http.ListenAndServe(":"+port, handlers.Routes()); err != nil {
		log.Fatalln("Server failed to start:", err)
	}
}
