package tetris

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"narrow", func(c *Config) { c.Width = 4 }},
		{"short", func(c *Config) { c.Height = 5 }},
		{"reversed gap", func(c *Config) { c.SpawnGapColumns = [2]int{8, 3} }},
		{"gap outside", func(c *Config) { c.SpawnGapColumns = [2]int{3, 12} }},
		{"spawn outside", func(c *Config) { c.SpawnPoint = Point{X: -1, Y: 0} }},
		{"zero threshold", func(c *Config) { c.DropThreshold = 0 }},
		{"negative speed", func(c *Config) { c.InitialSpeed = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}
