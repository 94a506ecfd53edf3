package events

import (
	"context"
	"sync"
	"time"

	"giftboard/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange     EventType = "balance_change"
	EventTypeUserCreated       EventType = "user_created"
	EventTypeGiftSent          EventType = "gift_sent"
	EventTypeGiftCompensated   EventType = "gift_compensated"
	EventTypeCompetitorUpdated EventType = "competitor_updated"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a committed ledger mutation
type BalanceChangeEvent struct {
	UserID          string                 `json:"userId"`
	OldBalance      decimal.Decimal        `json:"oldBalance"`
	NewBalance      decimal.Decimal        `json:"newBalance"`
	ChangeAmount    decimal.Decimal        `json:"changeAmount"`
	TransactionType models.TransactionType `json:"transactionType"`
	RelatedID       string                 `json:"relatedId,omitempty"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new account with its opening balance
type UserCreatedEvent struct {
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// GiftSentEvent is emitted once a gift has been charged and recorded
type GiftSentEvent struct {
	OperationID    string          `json:"operationId"`
	CompetitionID  string          `json:"competitionId"`
	CompetitorID   string          `json:"competitorId"`
	CompetitorName string          `json:"competitorName"`
	SenderID       string          `json:"senderId"`
	SenderName     string          `json:"senderName"`
	GiftType       string          `json:"giftType"`
	GiftIcon       string          `json:"giftIcon"`
	Amount         decimal.Decimal `json:"amount"`
	EntryCount     int             `json:"entryCount"`
	SentAt         time.Time       `json:"sentAt"`
}

func (e GiftSentEvent) Type() EventType {
	return EventTypeGiftSent
}

// GiftCompensatedEvent is emitted when a charged gift could not be recorded and was refunded
type GiftCompensatedEvent struct {
	OperationID  string          `json:"operationId"`
	CompetitorID string          `json:"competitorId"`
	SenderID     string          `json:"senderId"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
}

func (e GiftCompensatedEvent) Type() EventType {
	return EventTypeGiftCompensated
}

// CompetitorUpdatedEvent is emitted after a cosmetic competitor edit
type CompetitorUpdatedEvent struct {
	CompetitorID  string             `json:"competitorId"`
	CompetitionID string             `json:"competitionId"`
	ActiveHorse   models.ActiveHorse `json:"activeHorse"`
	HorseName     string             `json:"horseName"`
}

func (e CompetitorUpdatedEvent) Type() EventType {
	return EventTypeCompetitorUpdated
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for one or more event types
func (b *Bus) Subscribe(handler Handler, eventTypes ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range eventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], handler)

		log.WithFields(log.Fields{
			"eventType":    eventType,
			"handlerCount": len(b.handlers[eventType]),
		}).Debug("Subscribed handler to event type")
	}
}

// Emit dispatches an event to all registered handlers, each on its own goroutine
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started by Emit has returned or ctx is done
func (b *Bus) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits the pending events. Called after a successful commit.
func (b *TransactionalBus) Flush() {
	if b.real == nil {
		b.pending = nil
		return
	}

	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// Handlers outlive the request, so they never see the transaction's context
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops the pending events. Called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of events waiting for a commit
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
