package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "all-minilm", cfg.Model)
	assert.Zero(t, cfg.RequestsPerSecond)
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://embeddings.internal:9100/v1"),
		WithModel("text-embedding-3-small"),
		WithRequestsPerSecond(5),
	)
	assert.Equal(t, "http://embeddings.internal:9100/v1", cfg.Host)
	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, 5.0, cfg.RequestsPerSecond)
}

func TestConfig_NormalizeAddsV1Suffix(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"bare host", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	cfg = NewConfig(WithHost(""))
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(WithModel(""))
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(WithRequestsPerSecond(-1))
	assert.Error(t, cfg.Validate())
}
