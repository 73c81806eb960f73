package models

import (
	"math"

	"github.com/google/uuid"
)

// TileBoard holds the per-player state of one tiles game: the mine positions
// drawn at creation (never mutated) and the append-only set of revealed tiles.
// The board lives in memory for the lifetime of its wager session; the
// money-relevant state is on the WagerSession row.
type TileBoard struct {
	SessionID uuid.UUID
	UserID    int64
	BetAmount int64
	BoardSize int
	MineCount int

	mines    map[int]bool
	revealed map[int]bool
}

// NewTileBoard creates a board with the given mine positions
func NewTileBoard(sessionID uuid.UUID, userID, betAmount int64, boardSize int, minePositions []int) *TileBoard {
	mines := make(map[int]bool, len(minePositions))
	for _, p := range minePositions {
		mines[p] = true
	}
	return &TileBoard{
		SessionID: sessionID,
		UserID:    userID,
		BetAmount: betAmount,
		BoardSize: boardSize,
		MineCount: len(minePositions),
		mines:     mines,
		revealed:  make(map[int]bool),
	}
}

// InBounds reports whether the tile index is on the board
func (b *TileBoard) InBounds(tileIndex int) bool {
	return tileIndex >= 0 && tileIndex < b.BoardSize
}

// IsMine reports whether the tile hides a mine
func (b *TileBoard) IsMine(tileIndex int) bool {
	return b.mines[tileIndex]
}

// IsRevealed reports whether the tile was already revealed
func (b *TileBoard) IsRevealed(tileIndex int) bool {
	return b.revealed[tileIndex]
}

// MarkRevealed appends a tile to the revealed set
func (b *TileBoard) MarkRevealed(tileIndex int) {
	b.revealed[tileIndex] = true
}

// RevealedCount returns the number of safe tiles revealed so far
func (b *TileBoard) RevealedCount() int {
	return len(b.revealed)
}

// SafeTileCount returns the number of tiles that hide no mine
func (b *TileBoard) SafeTileCount() int {
	return b.BoardSize - b.MineCount
}

// MinePositions returns the mine positions in ascending order
func (b *TileBoard) MinePositions() []int {
	positions := make([]int, 0, len(b.mines))
	for i := 0; i < b.BoardSize; i++ {
		if b.mines[i] {
			positions = append(positions, i)
		}
	}
	return positions
}

// Multiplier computes the current cash-out multiplier. The curve
// 1 + (revealed/safe)^2 * k is strictly increasing in the reveal count, so
// later reveals are always worth more.
func (b *TileBoard) Multiplier(curve float64) float64 {
	risk := float64(b.RevealedCount()) / float64(b.SafeTileCount())
	return 1 + math.Pow(risk, 2)*curve
}
