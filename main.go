package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"ocppcs/internal/config"
	"ocppcs/metrics"
	"ocppcs/server"
)

func main() {
	conf, err := config.GetConfig()
	if err != nil {
		log.Println("configuration load failed:", err)
		return
	}

	centralSystem, err := server.NewCentralSystem(conf)
	if err != nil {
		log.Println("central system initialization failed:", err)
		return
	}

	go func() {
		if err := metrics.Listen(conf); err != nil {
			log.Println("metrics server failed:", err)
		}
	}()

	centralSystem.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("shutting down")
	centralSystem.Stop()
}
