package main

import (
	"log"
	probax "probax-client"

	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	logger := probax.NewLogger()
	cfg := probax.LoadConfig()

	// Create Temporal client
	c, err := client.Dial(probax.GetClientOptions(logger))
	if err != nil {
		log.Fatalln("Unable to create Temporal client", err)
	}
	defer c.Close()

	service := probax.NewService(cfg,
		probax.WithLogger(logger),
		probax.WithMetrics(probax.NewMetrics(prometheus.DefaultRegisterer)),
	)

	// Create worker
	w := worker.New(c, probax.TaskQueue(), worker.Options{})

	// Register workflows
	w.RegisterWorkflow(probax.PredictMatchWorkflow)
	w.RegisterWorkflow(probax.MatchSessionWorkflow)

	// Register activities
	w.RegisterActivity(probax.NewActivities(service))

	// Start worker
	log.Printf("Starting Temporal worker for probax, backend %s", service.Backend.BaseURL())
	err = w.Run(worker.InterruptCh())
	if err != nil {
		log.Fatalln("Unable to start worker", err)
	}
}
