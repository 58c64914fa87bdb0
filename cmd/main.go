package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/storyloom/server/internal/api"
	"github.com/storyloom/server/internal/config"
	"github.com/storyloom/server/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "storyloom.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override the config file
	port := cfg.Port()
	if p := os.Getenv("PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	dbPath := cfg.DBPath()
	if p := os.Getenv("DB_PATH"); p != "" {
		dbPath = p
	}

	authSecret := cfg.Server.AuthSecret
	if s := os.Getenv("AUTH_SECRET"); s != "" {
		authSecret = s
	}

	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open graph store: %v", err)
	}
	defer st.Close()

	server := api.NewServer(st, api.Config{
		AuthSecret: authSecret,
		RateLimit:  cfg.RateLimit(),
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting server on %s", addr)

	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
