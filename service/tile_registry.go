package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"casino/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TileConfig tunes the tiles game
type TileConfig struct {
	BoardSize int
	MineCount int
	Curve     float64 // k in 1 + (revealed/safe)^2 * k
}

// RevealResult reports the outcome of revealing one tile
type RevealResult struct {
	Mine          bool
	Multiplier    float64
	RevealedCount int
	PotentialWin  int64
	AmountLost    int64 // stake forfeited, only populated after a mine hit
	MinePositions []int // only populated after a mine hit
}

// TileRegistry owns the per-player tile boards. Boards are in-memory: the
// durable money state lives on the wager session, and a board is worthless
// once its session is terminal. Mine hits are settled through the settlement
// engine, making the registry the second trusted internal caller of
// ResolveByEngine.
type TileRegistry struct {
	settlement SettlementService
	cfg        TileConfig

	mu     sync.Mutex
	boards map[uuid.UUID]*models.TileBoard

	// overridable in tests
	pickMines func(boardSize, mineCount int) []int
}

// NewTileRegistry creates a new tile registry
func NewTileRegistry(settlement SettlementService, cfg TileConfig) *TileRegistry {
	// rand.Rand is not safe for concurrent use; Start runs on request
	// goroutines, so the draw takes its own lock.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rngMu sync.Mutex
	return &TileRegistry{
		settlement: settlement,
		cfg:        cfg,
		boards:     make(map[uuid.UUID]*models.TileBoard),
		pickMines: func(boardSize, mineCount int) []int {
			rngMu.Lock()
			defer rngMu.Unlock()
			return rng.Perm(boardSize)[:mineCount]
		},
	}
}

// Start places the bet and draws the mine positions, fixed for the lifetime
// of the board.
func (r *TileRegistry) Start(ctx context.Context, userID int64, amount int64) (*models.WagerSession, error) {
	session, err := r.settlement.PlaceBet(ctx, userID, models.GameTypeTiles, amount)
	if err != nil {
		return nil, err
	}

	board := models.NewTileBoard(session.ID, userID, amount, r.cfg.BoardSize, r.pickMines(r.cfg.BoardSize, r.cfg.MineCount))

	r.mu.Lock()
	r.boards[session.ID] = board
	r.mu.Unlock()

	log.WithFields(log.Fields{
		"userId":    userID,
		"sessionId": session.ID,
		"boardSize": r.cfg.BoardSize,
		"mineCount": r.cfg.MineCount,
	}).Info("Tiles game started")

	return session, nil
}

// Reveal uncovers one tile. A safe tile raises the multiplier; a mine ends
// the game through the engine resolution path.
func (r *TileRegistry) Reveal(ctx context.Context, userID int64, sessionID uuid.UUID, tileIndex int) (*RevealResult, error) {
	r.mu.Lock()
	board, ok := r.boards[sessionID]
	if !ok || board.UserID != userID {
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if !board.InBounds(tileIndex) {
		r.mu.Unlock()
		return nil, ErrInvalidTileIndex
	}
	if board.IsRevealed(tileIndex) {
		r.mu.Unlock()
		return nil, ErrTileAlreadyRevealed
	}

	if board.IsMine(tileIndex) {
		// The mine tile stays unrevealed and the board stays registered
		// until the loss settles, so a failed settlement can be retried
		// by revealing the same tile again. The session CAS arbitrates
		// anything that observes the board in the meantime.
		positions := board.MinePositions()
		lost := board.BetAmount
		r.mu.Unlock()

		if err := r.settlement.ResolveByEngine(ctx, sessionID, MineHit()); err != nil {
			return nil, err
		}

		r.mu.Lock()
		delete(r.boards, sessionID)
		r.mu.Unlock()

		return &RevealResult{
			Mine:          true,
			AmountLost:    lost,
			MinePositions: positions,
		}, nil
	}

	board.MarkRevealed(tileIndex)
	multiplier := board.Multiplier(r.cfg.Curve)
	revealed := board.RevealedCount()
	potential := int64(float64(board.BetAmount) * multiplier)
	r.mu.Unlock()

	return &RevealResult{
		Mine:          false,
		Multiplier:    multiplier,
		RevealedCount: revealed,
		PotentialWin:  potential,
	}, nil
}

// CashOut settles the session at the board's current multiplier
func (r *TileRegistry) CashOut(ctx context.Context, userID int64, sessionID uuid.UUID) (*SettlementResult, error) {
	r.mu.Lock()
	board, ok := r.boards[sessionID]
	if !ok || board.UserID != userID {
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if board.RevealedCount() == 0 {
		r.mu.Unlock()
		return nil, ErrNothingRevealed
	}
	multiplier := board.Multiplier(r.cfg.Curve)
	r.mu.Unlock()

	result, err := r.settlement.ResolveByPlayer(ctx, userID, sessionID, multiplier)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	delete(r.boards, sessionID)
	r.mu.Unlock()

	return result, nil
}
