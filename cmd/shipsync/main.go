package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd(defaultSyncFactories()).Execute(); err != nil {
		slog.Error("shipsync failed", "error", err.Error())
		os.Exit(1)
	}
}
