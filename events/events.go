package events

import (
	"context"
	"sync"

	"casino/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange    EventType = "balance_change"
	EventTypeBetPlaced        EventType = "bet_placed"
	EventTypeSessionResolved  EventType = "session_resolved"
	EventTypeDepositCompleted EventType = "deposit_completed"
	EventTypeRoundTick        EventType = "round_tick"
	EventTypeRoundCrashed     EventType = "round_crashed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID       int64             `json:"user_id"`
	OldBalance   int64             `json:"old_balance"`
	NewBalance   int64             `json:"new_balance"`
	ChangeAmount int64             `json:"change_amount"`
	Kind         models.LedgerKind `json:"kind"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// BetPlacedEvent represents a wager session that was opened
type BetPlacedEvent struct {
	SessionID uuid.UUID       `json:"session_id"`
	UserID    int64           `json:"user_id"`
	GameType  models.GameType `json:"game_type"`
	Amount    int64           `json:"amount"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// SessionResolvedEvent represents a wager session reaching a terminal status.
// Payout is 0 on a loss; BetAmount lets consumers derive the forfeited stake.
type SessionResolvedEvent struct {
	SessionID  uuid.UUID            `json:"session_id"`
	UserID     int64                `json:"user_id"`
	GameType   models.GameType      `json:"game_type"`
	Status     models.SessionStatus `json:"status"`
	Multiplier float64              `json:"multiplier"`
	BetAmount  int64                `json:"bet_amount"`
	Payout     int64                `json:"payout"`
}

func (e SessionResolvedEvent) Type() EventType {
	return EventTypeSessionResolved
}

// DepositCompletedEvent represents a confirmed external payment
type DepositCompletedEvent struct {
	UserID      int64  `json:"user_id"`
	Amount      int64  `json:"amount"`
	ExternalRef string `json:"external_ref"`
}

func (e DepositCompletedEvent) Type() EventType {
	return EventTypeDepositCompleted
}

// RoundTickEvent is the periodic one-way push of the shared round state
type RoundTickEvent struct {
	RoundID    uuid.UUID `json:"round_id"`
	Phase      string    `json:"phase"`
	Multiplier float64   `json:"multiplier"`
}

func (e RoundTickEvent) Type() EventType {
	return EventTypeRoundTick
}

// RoundCrashedEvent announces the crash point at the end of a round
type RoundCrashedEvent struct {
	RoundID    uuid.UUID `json:"round_id"`
	CrashPoint float64   `json:"crash_point"`
	Resolved   int       `json:"resolved"`
}

func (e RoundCrashedEvent) Type() EventType {
	return EventTypeRoundCrashed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking settlement paths
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
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

// TransactionalBus stashes events coupled to a unit of work and flushes them
// to the underlying bus only after the database commit succeeds.
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

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events outlive the transaction context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
