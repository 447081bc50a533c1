// Package main запускает сборщик ресторанов и отзывов.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"restoharvest/cmd/harvester/commands"
)

func main() {
	// Обработка сигналов
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	commands.ExecuteContext(ctx)
}
