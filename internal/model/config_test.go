package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	saved := &AppConfig{
		ServerURL:  "https://api.example.com",
		ChannelURL: "wss://realtime.example.com/realtime",
		Theme:      "dark",
	}
	require.NoError(t, SaveConfig(path, saved))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Theme)
	assert.Empty(t, cfg.ServerURL)
}

func TestResolveChannelURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  AppConfig
		want string
	}{
		{
			name: "explicit channel URL wins",
			cfg:  AppConfig{ServerURL: "https://api.example.com", ChannelURL: "wss://other/realtime"},
			want: "wss://other/realtime",
		},
		{
			name: "derived from https",
			cfg:  AppConfig{ServerURL: "https://api.example.com"},
			want: "wss://api.example.com/realtime",
		},
		{
			name: "derived from http",
			cfg:  AppConfig{ServerURL: "http://localhost:8080"},
			want: "ws://localhost:8080/realtime",
		},
		{
			name: "trailing slash is trimmed",
			cfg:  AppConfig{ServerURL: "https://api.example.com/"},
			want: "wss://api.example.com/realtime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolveChannelURL())
		})
	}
}
