package tetris

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameStateString(t *testing.T) {
	assert.Equal(t, "startup", StateStartup.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "pause", StatePause.String())
	assert.Equal(t, "gameover", StateGameover.String())
	assert.Equal(t, "unknown", GameState(99).String())
}

func TestStatsJSON(t *testing.T) {
	data, err := json.Marshal(Stats{LinesCleared: 2, PiecesPlaced: 9, Ticks: 300, Speed: 12})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"lines_cleared":2,"pieces_placed":9,"ticks":300,"speed":12}`, string(data))
}
