package repository

import (
	"context"
	"errors"
	"fmt"

	"giftboard/database"
	"giftboard/events"
	"giftboard/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	historyRepo      service.BalanceHistoryRepository
	competitionRepo  service.CompetitionRepository
	competitorRepo   service.CompetitorRepository
	giftRepo         service.GiftRepository
	operationRepo    service.GiftOperationRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction and binds every repository to it
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepositoryWithTx(tx)
	u.historyRepo = newBalanceHistoryRepositoryWithTx(tx)
	u.competitionRepo = newCompetitionRepositoryWithTx(tx)
	u.competitorRepo = newCompetitorRepositoryWithTx(tx)
	u.giftRepo = newGiftRepositoryWithTx(tx)
	u.operationRepo = newGiftOperationRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and releases the events published inside it
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.transactionalBus.Flush()
	return nil
}

// Rollback rolls back the transaction and drops its pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.transactionalBus.Discard()
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

func (u *unitOfWork) UserRepository() service.UserRepository {
	mustBegin(u.userRepo)
	return u.userRepo
}

func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	mustBegin(u.historyRepo)
	return u.historyRepo
}

func (u *unitOfWork) CompetitionRepository() service.CompetitionRepository {
	mustBegin(u.competitionRepo)
	return u.competitionRepo
}

func (u *unitOfWork) CompetitorRepository() service.CompetitorRepository {
	mustBegin(u.competitorRepo)
	return u.competitorRepo
}

func (u *unitOfWork) GiftRepository() service.GiftRepository {
	mustBegin(u.giftRepo)
	return u.giftRepo
}

func (u *unitOfWork) GiftOperationRepository() service.GiftOperationRepository {
	mustBegin(u.operationRepo)
	return u.operationRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}

func mustBegin(repo any) {
	if repo == nil {
		panic("unit of work not started - call Begin() first")
	}
}
