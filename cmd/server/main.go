package main

import (
	"context"
	"flag"
	"log"

	"github.com/folioforge/folioforge/internal/server"
	"github.com/folioforge/folioforge/internal/server/config"
)

func main() {
	envPath := flag.String("env", ".env", "path to an optional dotenv file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*envPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
