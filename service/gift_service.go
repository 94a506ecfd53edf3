package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"giftboard/config"
	"giftboard/events"
	"giftboard/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	defaultStoreTimeout     = 5 * time.Second
	maxIdempotencyKeyLength = 128

	// An operation untouched for this many store timeouts has lost the request that drove it
	stuckOperationFactor = 4
	recoveryBatchSize    = 100
)

// SendGiftRequest charges the sender for one unit of a gift and records it on the competitor
type SendGiftRequest struct {
	CompetitorID   string
	GiftType       string
	GiftIcon       string
	GiftCost       decimal.Decimal
	SenderID       string
	IdempotencyKey string // optional; retries carrying the same key are charged once
}

// Validate checks the request before any store access
func (r SendGiftRequest) Validate() error {
	if strings.TrimSpace(r.CompetitorID) == "" {
		return &ValidationError{Field: "competitorId", Message: "is required"}
	}
	if strings.TrimSpace(r.SenderID) == "" {
		return &ValidationError{Field: "giftedByUserId", Message: "is required"}
	}
	if err := validateGiftType(r.GiftType, r.GiftIcon); err != nil {
		return err
	}
	if err := validateAmount("giftCost", r.GiftCost); err != nil {
		return err
	}
	if len(r.IdempotencyKey) > maxIdempotencyKeyLength {
		return &ValidationError{Field: "idempotencyKey", Message: fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLength)}
	}
	return nil
}

// SendGiftResult describes a completed gift. Replayed is set when the result was
// served from an earlier attempt with the same idempotency key.
type SendGiftResult struct {
	OperationID    string
	DeductedAmount decimal.Decimal
	NewBalance     decimal.Decimal
	Sender         *models.User
	Competitor     *models.Competitor
	Entry          *models.GiftEntry
	Replayed       bool
}

// giftService implements the GiftService interface
type giftService struct {
	uowFactory   UnitOfWorkFactory
	storeTimeout time.Duration
	retention    time.Duration
	now          func() time.Time
}

// NewGiftService creates a new gift service
func NewGiftService(uowFactory UnitOfWorkFactory, cfg *config.Config) GiftService {
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &giftService{
		uowFactory:   uowFactory,
		storeTimeout: storeTimeout,
		retention:    cfg.IdempotencyRetention,
		now:          time.Now,
	}
}

func (s *giftService) RecordGift(ctx context.Context, req RecordGiftRequest) (*RecordGiftResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := recordGift(ctx, uow, req)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// SendGift runs the charged gift flow as three committed steps:
// open the operation, debit the sender, record the gift.
// A failed record step is compensated by refunding the debit.
func (s *giftService) SendGift(ctx context.Context, req SendGiftRequest) (*SendGiftResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	op, replay, err := s.openOperation(ctx, req)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		log.WithFields(log.Fields{
			"operationId": replay.OperationID,
			"senderId":    req.SenderID,
		}).Info("Replayed gift operation for idempotency key")
		return replay, nil
	}

	logger := log.WithFields(log.Fields{
		"operationId":  op.ID,
		"senderId":     op.SenderID,
		"competitorId": op.CompetitorID,
		"giftType":     op.GiftType,
		"amount":       op.Amount.StringFixed(2),
	})

	sender, err := s.debitSender(ctx, op)
	if err != nil {
		if isRejection(err) {
			s.closeOperation(ctx, op, models.GiftOperationRejected, err)
			return nil, err
		}
		logger.WithError(err).Warn("Gift debit outcome unknown, reconciling")
		return s.reconcileDebit(ctx, op, err)
	}

	result, err := s.recordForOperation(ctx, op, req, sender)
	if err != nil {
		logger.WithError(err).Error("Failed to record charged gift, refunding")
		return s.compensate(ctx, op, err)
	}

	logger.WithField("newBalance", result.NewBalance.StringFixed(2)).Info("Gift sent")
	return result, nil
}

func (s *giftService) ReleaseExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	released, err := uow.GiftOperationRepository().ReleaseExpiredKeys(ctx, s.now().Add(-s.retention))
	if err != nil {
		return 0, fmt.Errorf("failed to release expired idempotency keys: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return released, nil
}

func (s *giftService) RecoverStuckOperations(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-stuckOperationFactor * s.storeTimeout)

	stuck, err := s.listStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, op := range stuck {
		logger := log.WithFields(log.Fields{
			"operationId": op.ID,
			"senderId":    op.SenderID,
			"status":      op.Status,
			"updatedAt":   op.UpdatedAt,
		})

		switch op.Status {
		case models.GiftOperationDebited:
			cause := fmt.Errorf("gift operation abandoned after debit at %s", op.UpdatedAt.UTC().Format(time.RFC3339))
			_, err := s.compensate(ctx, op, cause)
			if err != nil && !errors.Is(err, ErrPartialFailure) {
				// compensate already logged the reconciliation details; the next sweep retries
				continue
			}
			logger.Warn("Recovered abandoned gift operation")
			recovered++
		case models.GiftOperationPending:
			if s.closeOperation(ctx, op, models.GiftOperationFailed, errors.New("gift operation abandoned before debit")) {
				logger.Info("Closed abandoned gift operation")
				recovered++
			}
		}
	}

	return recovered, nil
}

// listStale returns the charged and uncharged operations last touched before cutoff
func (s *giftService) listStale(ctx context.Context, cutoff time.Time) ([]*models.GiftOperation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	var stuck []*models.GiftOperation
	for _, status := range []models.GiftOperationStatus{models.GiftOperationDebited, models.GiftOperationPending} {
		ops, err := uow.GiftOperationRepository().ListStale(ctx, status, cutoff, recoveryBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s gift operations: %w", status, err)
		}
		stuck = append(stuck, ops...)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stuck, nil
}

// openOperation resolves the idempotency key and inserts a pending operation.
// It returns a non-nil result instead when the key belongs to a completed operation.
func (s *giftService) openOperation(ctx context.Context, req SendGiftRequest) (*models.GiftOperation, *SendGiftResult, error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(stepCtx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ops := uow.GiftOperationRepository()

	var key *string
	if req.IdempotencyKey != "" {
		key = &req.IdempotencyKey

		existing, err := ops.GetByIdempotencyKey(stepCtx, req.IdempotencyKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to look up idempotency key: %w", err)
		}

		if existing != nil {
			switch {
			case existing.Status.InFlight():
				// A charged but unfinished operation keeps its key until it is completed or refunded
				message := "a gift with this idempotency key is still being processed"
				if !sameGift(existing, req) {
					message = "idempotency key was already used for a different gift"
				}
				return nil, nil, &ConflictError{OperationID: existing.ID, Message: message}
			case existing.Status != models.GiftOperationCompleted:
				// Rejected, failed and refunded attempts charged nothing; the key may be reused
				if err := ops.ReleaseKey(stepCtx, existing.ID); err != nil {
					return nil, nil, fmt.Errorf("failed to release idempotency key: %w", err)
				}
			case existing.CreatedAt.Before(s.now().Add(-s.retention)):
				if err := ops.ReleaseKey(stepCtx, existing.ID); err != nil {
					return nil, nil, fmt.Errorf("failed to release expired idempotency key: %w", err)
				}
			case !sameGift(existing, req):
				return nil, nil, &ConflictError{
					OperationID: existing.ID,
					Message:     "idempotency key was already used for a different gift",
				}
			default:
				result, err := s.loadResult(stepCtx, uow, existing, true)
				if err != nil {
					return nil, nil, err
				}
				if err := uow.Commit(); err != nil {
					return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
				}
				return nil, result, nil
			}
		}
	}

	sender, err := uow.UserRepository().GetByID(stepCtx, req.SenderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sender: %w", err)
	}
	if sender == nil {
		return nil, nil, &NotFoundError{Resource: "user", ID: req.SenderID}
	}

	competitor, err := uow.CompetitorRepository().GetByID(stepCtx, req.CompetitorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get competitor: %w", err)
	}
	if competitor == nil {
		return nil, nil, &NotFoundError{Resource: "competitor", ID: req.CompetitorID}
	}

	op := &models.GiftOperation{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		SenderID:       sender.ID,
		CompetitorID:   competitor.ID,
		GiftType:       strings.TrimSpace(req.GiftType),
		Amount:         req.GiftCost,
		Status:         models.GiftOperationPending,
	}

	created, err := ops.Create(stepCtx, op)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gift operation: %w", err)
	}
	if !created {
		return nil, nil, &ConflictError{Message: "a gift with this idempotency key is still being processed"}
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return op, nil, nil
}

// debitSender charges the sender and marks the operation debited in the same transaction,
// so the operation status always tells whether the charge landed.
func (s *giftService) debitSender(ctx context.Context, op *models.GiftOperation) (*models.User, error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(stepCtx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	sender, err := debitBalance(stepCtx, uow, op.SenderID, op.Amount, LedgerEntry{
		TransactionType: models.TransactionTypeGiftSent,
		RelatedID:       op.ID,
		Metadata: map[string]any{
			"competitorId": op.CompetitorID,
			"giftType":     op.GiftType,
		},
	})
	if err != nil {
		return nil, err
	}

	op.Status = models.GiftOperationDebited
	op.NewBalance = decimal.NewNullDecimal(sender.Balance)
	moved, err := uow.GiftOperationRepository().UpdateStatus(stepCtx, op, models.GiftOperationPending)
	if err != nil {
		return nil, fmt.Errorf("failed to mark gift operation debited: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("gift operation %s left pending state unexpectedly", op.ID)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit debit: %w", err)
	}

	return sender, nil
}

// recordForOperation records the gift and completes the operation.
// The sender is already charged, so caller cancellation no longer applies.
func (s *giftService) recordForOperation(ctx context.Context, op *models.GiftOperation, req SendGiftRequest, sender *models.User) (*SendGiftResult, error) {
	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(stepCtx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	recorded, err := recordGift(stepCtx, uow, RecordGiftRequest{
		CompetitorID: op.CompetitorID,
		GiftType:     op.GiftType,
		GiftIcon:     req.GiftIcon,
		UnitCost:     op.Amount,
		SenderID:     op.SenderID,
	})
	if err != nil {
		return nil, err
	}

	op.Status = models.GiftOperationCompleted
	op.EntryKey = &recorded.Entry.Key
	moved, err := uow.GiftOperationRepository().UpdateStatus(stepCtx, op, models.GiftOperationDebited)
	if err != nil {
		return nil, fmt.Errorf("failed to mark gift operation completed: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("gift operation %s left debited state unexpectedly", op.ID)
	}

	uow.EventBus().Publish(events.GiftSentEvent{
		OperationID:    op.ID,
		CompetitionID:  recorded.Competitor.CompetitionID,
		CompetitorID:   recorded.Competitor.ID,
		CompetitorName: recorded.Competitor.Name,
		SenderID:       sender.ID,
		SenderName:     sender.Name,
		GiftType:       recorded.Entry.Type,
		GiftIcon:       recorded.Entry.Icon,
		Amount:         op.Amount,
		EntryCount:     recorded.Entry.Count,
		SentAt:         s.now().UTC(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit gift record: %w", err)
	}

	return &SendGiftResult{
		OperationID:    op.ID,
		DeductedAmount: op.Amount,
		NewBalance:     sender.Balance,
		Sender:         sender,
		Competitor:     recorded.Competitor,
		Entry:          recorded.Entry,
	}, nil
}

// reconcileDebit settles a debit whose outcome is unknown by re-reading the operation and balance
func (s *giftService) reconcileDebit(ctx context.Context, op *models.GiftOperation, cause error) (*SendGiftResult, error) {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	stored, sender, err := s.readOperationState(readCtx, op)
	if err != nil {
		recErr := &ReconciliationError{
			OperationID:     op.ID,
			SenderID:        op.SenderID,
			CompetitorID:    op.CompetitorID,
			Amount:          op.Amount,
			ForwardErr:      cause,
			CompensationErr: err,
		}
		log.WithError(recErr).Error("Could not determine gift debit outcome")
		return nil, recErr
	}

	log.WithFields(log.Fields{
		"operationId":    op.ID,
		"status":         stored.Status,
		"currentBalance": sender.Balance.StringFixed(2),
	}).Info("Reconciled gift debit")

	if stored.Status == models.GiftOperationDebited {
		return s.compensate(ctx, op, cause)
	}

	s.closeOperation(ctx, op, models.GiftOperationFailed, cause)
	return nil, fmt.Errorf("%w: gift debit did not complete: %v", ErrInternal, cause)
}

// compensate refunds a charged operation and marks it compensated.
// If the operation turns out to be completed already, its result is returned instead.
func (s *giftService) compensate(ctx context.Context, op *models.GiftOperation, cause error) (*SendGiftResult, error) {
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	logger := log.WithFields(log.Fields{
		"operationId":  op.ID,
		"senderId":     op.SenderID,
		"competitorId": op.CompetitorID,
		"amount":       op.Amount.StringFixed(2),
	})

	fail := func(err error) (*SendGiftResult, error) {
		recErr := &ReconciliationError{
			OperationID:     op.ID,
			SenderID:        op.SenderID,
			CompetitorID:    op.CompetitorID,
			Amount:          op.Amount,
			ForwardErr:      cause,
			CompensationErr: err,
		}
		logger.WithError(recErr).Error("Gift refund failed, manual reconciliation required")
		return nil, recErr
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(compCtx); err != nil {
		return fail(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer uow.Rollback()

	ops := uow.GiftOperationRepository()

	op.Status = models.GiftOperationCompensated
	op.FailureReason = cause.Error()
	moved, err := ops.UpdateStatus(compCtx, op, models.GiftOperationDebited)
	if err != nil {
		return fail(fmt.Errorf("failed to mark gift operation compensated: %w", err))
	}

	if !moved {
		stored, err := ops.GetByID(compCtx, op.ID)
		if err != nil || stored == nil {
			return fail(fmt.Errorf("failed to re-read gift operation: %w", err))
		}
		switch stored.Status {
		case models.GiftOperationCompleted:
			// The record step committed even though it reported an error
			result, err := s.loadResult(compCtx, uow, stored, false)
			if err != nil {
				return fail(err)
			}
			if err := uow.Commit(); err != nil {
				return fail(fmt.Errorf("failed to commit transaction: %w", err))
			}
			logger.Warn("Gift record committed despite error, no refund issued")
			return result, nil
		case models.GiftOperationCompensated:
			return nil, &PartialFailureError{OperationID: op.ID, SenderID: op.SenderID, CompetitorID: op.CompetitorID, Amount: op.Amount, Cause: cause}
		default:
			return fail(fmt.Errorf("gift operation %s is %s, cannot refund", op.ID, stored.Status))
		}
	}

	if _, err := creditBalance(compCtx, uow, op.SenderID, op.Amount, LedgerEntry{
		TransactionType: models.TransactionTypeGiftRefund,
		RelatedID:       op.ID,
		Metadata: map[string]any{
			"competitorId": op.CompetitorID,
			"giftType":     op.GiftType,
			"reason":       cause.Error(),
		},
	}); err != nil {
		return fail(err)
	}

	uow.EventBus().Publish(events.GiftCompensatedEvent{
		OperationID:  op.ID,
		CompetitorID: op.CompetitorID,
		SenderID:     op.SenderID,
		Amount:       op.Amount,
		Reason:       cause.Error(),
	})

	if err := uow.Commit(); err != nil {
		return fail(fmt.Errorf("failed to commit refund: %w", err))
	}

	logger.Warn("Gift charge refunded")
	return nil, &PartialFailureError{
		OperationID:  op.ID,
		SenderID:     op.SenderID,
		CompetitorID: op.CompetitorID,
		Amount:       op.Amount,
		Cause:        cause,
	}
}

// closeOperation moves a pending operation to a terminal state and reports whether it moved.
// Failures are only logged.
func (s *giftService) closeOperation(ctx context.Context, op *models.GiftOperation, status models.GiftOperationStatus, cause error) bool {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	logger := log.WithFields(log.Fields{
		"operationId": op.ID,
		"status":      status,
	})

	uow := s.uowFactory.Create()
	if err := uow.Begin(closeCtx); err != nil {
		logger.WithError(err).Warn("Failed to close gift operation")
		return false
	}
	defer uow.Rollback()

	op.Status = status
	op.FailureReason = cause.Error()
	moved, err := uow.GiftOperationRepository().UpdateStatus(closeCtx, op, models.GiftOperationPending)
	if err != nil {
		logger.WithError(err).Warn("Failed to close gift operation")
		return false
	}
	if err := uow.Commit(); err != nil {
		logger.WithError(err).Warn("Failed to close gift operation")
		return false
	}
	return moved
}

// readOperationState re-reads the stored operation and the sender's current balance
func (s *giftService) readOperationState(ctx context.Context, op *models.GiftOperation) (*models.GiftOperation, *models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stored, err := uow.GiftOperationRepository().GetByID(ctx, op.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get gift operation: %w", err)
	}
	if stored == nil {
		return nil, nil, fmt.Errorf("gift operation %s not found", op.ID)
	}

	sender, err := uow.UserRepository().GetByID(ctx, op.SenderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sender: %w", err)
	}
	if sender == nil {
		return nil, nil, fmt.Errorf("sender %s not found", op.SenderID)
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stored, sender, nil
}

// loadResult rebuilds the result of a completed operation from the store
func (s *giftService) loadResult(ctx context.Context, uow UnitOfWork, op *models.GiftOperation, replayed bool) (*SendGiftResult, error) {
	sender, err := uow.UserRepository().GetByID(ctx, op.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}
	if sender == nil {
		return nil, &NotFoundError{Resource: "user", ID: op.SenderID}
	}

	competitor, err := uow.CompetitorRepository().GetByID(ctx, op.CompetitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor: %w", err)
	}
	if competitor == nil {
		return nil, &NotFoundError{Resource: "competitor", ID: op.CompetitorID}
	}

	var entry *models.GiftEntry
	if op.EntryKey != nil {
		for _, gift := range competitor.Gifts {
			if gift.Key == *op.EntryKey {
				entry = gift
				break
			}
		}
	}

	newBalance := sender.Balance
	if op.NewBalance.Valid {
		newBalance = op.NewBalance.Decimal
	}

	return &SendGiftResult{
		OperationID:    op.ID,
		DeductedAmount: op.Amount,
		NewBalance:     newBalance,
		Sender:         sender,
		Competitor:     competitor,
		Entry:          entry,
		Replayed:       replayed,
	}, nil
}

// sameGift reports whether a retried request matches the operation stored under its key
func sameGift(op *models.GiftOperation, req SendGiftRequest) bool {
	return op.SenderID == req.SenderID &&
		op.CompetitorID == req.CompetitorID &&
		op.GiftType == strings.TrimSpace(req.GiftType) &&
		op.Amount.Equal(req.GiftCost)
}

// isRejection reports errors raised before anything was charged
func isRejection(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidArgument)
}
