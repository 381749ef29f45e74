package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pstlabs/pst-analyzer/bootstrap"
	"github.com/pstlabs/pst-analyzer/config"
)

func main() {
	r, err := bootstrap.Bootstrap()
	if err != nil {
		slog.Error("Failed to start", "error", err)
		os.Exit(1)
	}
	port := config.GetPort()
	if err := r.Run(fmt.Sprintf(":%d", port)); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
