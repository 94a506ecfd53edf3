package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"giftboard/cmd"
	"giftboard/database"

	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	var err error
	switch command {
	case "serve":
		err = cmd.Run(ctx)
	case "migrate":
		err = handleMigrationCommand(os.Args[2:])
	case "credit-balance":
		err = handleCreditCommand(ctx, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q (expected serve, migrate or credit-balance)", command)
	}

	if err != nil {
		log.WithError(err).Fatalf("%s failed", command)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: giftboard migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

func handleCreditCommand(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: giftboard credit-balance <userId> <amount> [reason...]")
	}
	return cmd.CreditBalance(ctx, args[0], args[1], strings.Join(args[2:], " "))
}
