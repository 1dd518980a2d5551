package main

import (
	"context"
	"log/slog"
	"os"

	"go-contacts-api/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		slog.Error("contactsd failed", "error", err)
		os.Exit(1)
	}
}
