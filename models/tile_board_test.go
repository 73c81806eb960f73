package models

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTileBoard_Multiplier(t *testing.T) {
	board := NewTileBoard(uuid.New(), 1, 1000, 9, []int{3, 7})

	// 9 tiles, 2 mines: 7 safe tiles
	assert.Equal(t, 7, board.SafeTileCount())
	assert.Equal(t, 1.0, board.Multiplier(10))

	board.MarkRevealed(0)
	// 1 + (1/7)^2 * 10
	assert.InDelta(t, 1.2041, board.Multiplier(10), 0.0001)

	// Strictly increasing with every reveal
	previous := board.Multiplier(10)
	for _, tile := range []int{1, 2, 4, 5, 6, 8} {
		board.MarkRevealed(tile)
		current := board.Multiplier(10)
		assert.Greater(t, current, previous)
		previous = current
	}

	// All safe tiles revealed: 1 + 1^2 * 10
	assert.Equal(t, 7, board.RevealedCount())
	assert.InDelta(t, 11.0, board.Multiplier(10), 1e-9)
}

func TestTileBoard_MultiplierCurveParameter(t *testing.T) {
	board := NewTileBoard(uuid.New(), 1, 1000, 25, []int{0, 1, 2, 3, 4})
	board.MarkRevealed(10)

	// 20 safe tiles, 1 revealed: 1 + (1/20)^2 * k
	assert.InDelta(t, 1+math.Pow(0.05, 2)*10, board.Multiplier(10), 1e-9)
	assert.InDelta(t, 1+math.Pow(0.05, 2)*25, board.Multiplier(25), 1e-9)
}

func TestTileBoard_Queries(t *testing.T) {
	board := NewTileBoard(uuid.New(), 1, 1000, 9, []int{2, 5})

	assert.True(t, board.InBounds(0))
	assert.True(t, board.InBounds(8))
	assert.False(t, board.InBounds(-1))
	assert.False(t, board.InBounds(9))

	assert.True(t, board.IsMine(2))
	assert.False(t, board.IsMine(0))

	assert.False(t, board.IsRevealed(0))
	board.MarkRevealed(0)
	assert.True(t, board.IsRevealed(0))

	assert.Equal(t, []int{2, 5}, board.MinePositions())
}
