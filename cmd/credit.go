package cmd

import (
	"context"
	"fmt"

	"giftboard/config"
	"giftboard/database"
	"giftboard/events"
	"giftboard/models"
	"giftboard/repository"
	"giftboard/service"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CreditBalance adds amount to a user's balance as an admin adjustment
func CreditBalance(ctx context.Context, userID, amountStr, reason string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), database.Options{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ledger := service.NewLedgerService(repository.NewUnitOfWorkFactory(db, events.NewBus()))

	metadata := map[string]any{"source": "cli"}
	if reason != "" {
		metadata["reason"] = reason
	}

	user, err := ledger.Credit(ctx, userID, amount, service.LedgerEntry{
		TransactionType: models.TransactionTypeAdminAdjustment,
		Metadata:        metadata,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"userId":     user.ID,
		"amount":     amount.StringFixed(2),
		"newBalance": user.Balance.StringFixed(2),
	}).Info("Balance credited")
	return nil
}
