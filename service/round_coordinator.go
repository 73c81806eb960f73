package service

import (
	"context"
	"sync"
	"time"

	"casino/events"
	"casino/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RoundPhase is the lifecycle state of the shared multiplier round
type RoundPhase string

const (
	RoundPhaseWaiting RoundPhase = "waiting"
	RoundPhaseRunning RoundPhase = "running"
	RoundPhaseCrashed RoundPhase = "crashed"
)

// RoundConfig tunes the round lifecycle
type RoundConfig struct {
	WaitDuration time.Duration // betting window before lift-off
	TickInterval time.Duration
	RestartDelay time.Duration // pause after a crash before the next round
	Growth       GrowthFunc
	Crash        CrashSource
}

// RoundSnapshot is a point-in-time view of the round for read paths
type RoundSnapshot struct {
	RoundID    uuid.UUID
	Phase      RoundPhase
	Multiplier float64
	CrashPoint float64 // only set once crashed
}

// round is the per-cycle state; a fresh value is created for every round so
// no state leaks across crashes.
type round struct {
	id         uuid.UUID
	phase      RoundPhase
	crashPoint float64
	multiplier float64
	startedAt  time.Time
	open       map[uuid.UUID]int64 // sessionID -> userID
}

// RoundCoordinator drives the shared round lifecycle for the multiplier game
// and is the engine-side source of crash resolutions. It communicates with
// sessions exclusively through the settlement engine's API and the outbound
// event bus; it is handed the settlement service directly at wiring time,
// which is the trusted-internal-caller capability for ResolveByEngine.
type RoundCoordinator struct {
	settlement SettlementService
	bus        *events.Bus
	cfg        RoundConfig

	mu      sync.Mutex
	current *round
}

// NewRoundCoordinator creates a coordinator; call Run to start the lifecycle
func NewRoundCoordinator(settlement SettlementService, bus *events.Bus, cfg RoundConfig) *RoundCoordinator {
	if cfg.Growth == nil {
		cfg.Growth = ExponentialGrowth(0.1)
	}
	c := &RoundCoordinator{
		settlement: settlement,
		bus:        bus,
		cfg:        cfg,
	}
	c.newRound()
	return c
}

// Run drives rounds until the context is cancelled
func (c *RoundCoordinator) Run(ctx context.Context) {
	for {
		if !sleepCtx(ctx, c.cfg.WaitDuration) {
			return
		}
		c.liftOff()

		ticker := time.NewTicker(c.cfg.TickInterval)
		for c.Snapshot().Phase == RoundPhaseRunning {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				c.tick(ctx)
			}
		}
		ticker.Stop()

		if !sleepCtx(ctx, c.cfg.RestartDelay) {
			return
		}
		c.newRound()
	}
}

// PlaceBet opens a wager session tagged to the current round. Bets are only
// accepted during the waiting phase.
func (c *RoundCoordinator) PlaceBet(ctx context.Context, userID int64, amount int64) (*models.WagerSession, error) {
	c.mu.Lock()
	if c.current.phase != RoundPhaseWaiting {
		c.mu.Unlock()
		return nil, ErrBettingClosed
	}
	c.mu.Unlock()

	session, err := c.settlement.PlaceBet(ctx, userID, models.GameTypeMultiplier, amount)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// The phase may have flipped while the bet settled; a session that
	// missed the round rides the next one from the same map.
	c.current.open[session.ID] = userID
	c.mu.Unlock()

	return session, nil
}

// CashOut settles a player's session at the claimed multiplier. The claim
// must not exceed the last broadcast value; the compare-and-set inside the
// settlement engine remains the sole arbiter of the race with the crash.
func (c *RoundCoordinator) CashOut(ctx context.Context, userID int64, sessionID uuid.UUID, claimedMultiplier float64) (*SettlementResult, error) {
	c.mu.Lock()
	phase := c.current.phase
	current := c.current.multiplier
	c.mu.Unlock()

	if phase != RoundPhaseRunning {
		return nil, ErrRoundNotRunning
	}
	if claimedMultiplier <= 0 {
		return nil, ErrInvalidMultiplier
	}
	if claimedMultiplier > current {
		return nil, ErrMultiplierExceedsCurrent
	}

	result, err := c.settlement.ResolveByPlayer(ctx, userID, sessionID, claimedMultiplier)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	delete(c.current.open, sessionID)
	c.mu.Unlock()

	return result, nil
}

// Snapshot returns a point-in-time view of the current round
func (c *RoundCoordinator) Snapshot() RoundSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := RoundSnapshot{
		RoundID:    c.current.id,
		Phase:      c.current.phase,
		Multiplier: c.current.multiplier,
	}
	if c.current.phase == RoundPhaseCrashed {
		snap.CrashPoint = c.current.crashPoint
	}
	return snap
}

// newRound re-instantiates the round state with a freshly drawn crash point
func (c *RoundCoordinator) newRound() {
	c.mu.Lock()
	carried := map[uuid.UUID]int64{}
	if c.current != nil {
		// Sessions that were opened after the previous round lifted off
		carried = c.current.open
	}
	c.current = &round{
		id:         uuid.New(),
		phase:      RoundPhaseWaiting,
		crashPoint: c.cfg.Crash.Next(),
		multiplier: 1.0,
		open:       carried,
	}
	id := c.current.id
	c.mu.Unlock()

	log.WithFields(log.Fields{"roundId": id}).Info("Round waiting for bets")
	c.bus.Emit(context.Background(), events.RoundTickEvent{
		RoundID:    id,
		Phase:      string(RoundPhaseWaiting),
		Multiplier: 1.0,
	})
}

func (c *RoundCoordinator) liftOff() {
	c.mu.Lock()
	c.current.phase = RoundPhaseRunning
	c.current.startedAt = time.Now()
	c.current.multiplier = 1.0
	id := c.current.id
	c.mu.Unlock()

	log.WithFields(log.Fields{"roundId": id}).Info("Round running")
}

// tick advances the multiplier and crashes the round once the pre-drawn
// crash point is reached.
func (c *RoundCoordinator) tick(ctx context.Context) {
	c.mu.Lock()
	if c.current.phase != RoundPhaseRunning {
		c.mu.Unlock()
		return
	}

	multiplier := c.cfg.Growth(time.Since(c.current.startedAt))
	if multiplier < c.current.multiplier {
		multiplier = c.current.multiplier // growth is monotone
	}

	if multiplier < c.current.crashPoint {
		c.current.multiplier = multiplier
		id := c.current.id
		c.mu.Unlock()

		c.bus.Emit(ctx, events.RoundTickEvent{
			RoundID:    id,
			Phase:      string(RoundPhaseRunning),
			Multiplier: multiplier,
		})
		return
	}

	// Crash: flip the phase first so no further cash-outs pass the gate,
	// then resolve stragglers outside the lock.
	c.current.phase = RoundPhaseCrashed
	c.current.multiplier = c.current.crashPoint
	point := c.current.crashPoint
	id := c.current.id
	open := c.current.open
	c.current.open = map[uuid.UUID]int64{}
	c.mu.Unlock()

	resolved := 0
	for sessionID := range open {
		if err := c.settlement.ResolveByEngine(ctx, sessionID, Crashed(point)); err != nil {
			log.WithFields(log.Fields{
				"roundId":   id,
				"sessionId": sessionID,
				"error":     err,
			}).Error("Failed to settle crashed session")
			continue
		}
		resolved++
	}

	log.WithFields(log.Fields{
		"roundId":    id,
		"crashPoint": point,
		"resolved":   resolved,
	}).Info("Round crashed")

	c.bus.Emit(ctx, events.RoundCrashedEvent{
		RoundID:    id,
		CrashPoint: point,
		Resolved:   resolved,
	})
}

// sleepCtx sleeps for d, returning false if the context was cancelled
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
