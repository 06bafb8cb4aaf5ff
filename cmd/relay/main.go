package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/NaveenKathirM/smartclassroom/internal/logging"
	"github.com/NaveenKathirM/smartclassroom/internal/relay"
	"github.com/NaveenKathirM/smartclassroom/internal/server"
)

func main() {
	logging.Init()

	hub := relay.NewHub()

	// Run the hub's main event loop in its own goroutine
	go hub.Run()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	addr := ":" + port
	slog.Info("starting signaling relay", "addr", addr)

	if err := http.ListenAndServe(addr, server.Routes(hub)); err != nil {
		slog.Error("relay server exited", "error", err)
		os.Exit(1)
	}
}
