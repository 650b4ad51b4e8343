package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.WeaviateHost)
	assert.Equal(t, "http", cfg.WeaviateScheme)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, 2, cfg.MaxHistory)
	assert.Equal(t, 2, cfg.MaxToolRounds)
	assert.InDelta(t, 0.7, cfg.CourseMatchCertainty, 0.001)
	assert.Equal(t, 8081, cfg.ServerPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("CHUNK_SIZE", "1200")
	t.Setenv("MAX_TOOL_ROUNDS", "3")
	t.Setenv("WEAVIATE_HOST", "weaviate:8080")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.ChunkSize)
	assert.Equal(t, 3, cfg.MaxToolRounds)
	assert.Equal(t, "weaviate:8080", cfg.WeaviateHost)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			WeaviateHost:  "localhost:8080",
			GeminiAPIKey:  "key",
			ChunkSize:     800,
			ChunkOverlap:  100,
			MaxToolRounds: 2,
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := base()
		cfg.GeminiAPIKey = ""
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrMissingRequired)
	})

	t.Run("missing weaviate host", func(t *testing.T) {
		cfg := base()
		cfg.WeaviateHost = ""
		assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)
	})

	t.Run("overlap not smaller than chunk size", func(t *testing.T) {
		cfg := base()
		cfg.ChunkOverlap = 800
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero tool rounds", func(t *testing.T) {
		cfg := base()
		cfg.MaxToolRounds = 0
		assert.Error(t, cfg.Validate())
	})
}
