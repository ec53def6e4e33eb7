package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := NewServer()
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server run error: %v", err)
	}
}
