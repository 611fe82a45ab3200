package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "all-mpnet-base-v2", cfg.EmbeddingModel)
	})

	t.Run("options override defaults", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed.internal:9100/v1"),
			WithEmbeddingModel("text-embedding-3-small"),
		)
		assert.Equal(t, "http://embed.internal:9100/v1", cfg.EmbeddingHost)
		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"keeps existing v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty host untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, NewConfig().Validate())
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := &Config{EmbeddingModel: "m"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := &Config{EmbeddingHost: "http://localhost:11434/v1"}
		assert.Error(t, cfg.Validate())
	})
}
