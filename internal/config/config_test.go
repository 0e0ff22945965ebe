package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newTestViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]any{
		"telegram_api_token": "token",
		"store.backend":      BackendMemory,
	}))
	if err != nil {
		t.Fatalf("fromViper() error = %v", err)
	}

	if cfg.Quiz.FreezeDuration != 10*time.Second {
		t.Errorf("FreezeDuration = %v", cfg.Quiz.FreezeDuration)
	}
	if cfg.Quiz.ReverseAnimation != 1500*time.Millisecond {
		t.Errorf("ReverseAnimation = %v", cfg.Quiz.ReverseAnimation)
	}
	if cfg.DailyWord.Schedule != "0 0 * * *" {
		t.Errorf("Schedule = %q", cfg.DailyWord.Schedule)
	}
	if cfg.Env != "local" || cfg.Redis.KeyPrefix != "vocanova:" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromViperRequiredValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   error
	}{
		{"no token", map[string]any{"store.backend": BackendMemory}, ErrMissingEnvironmentVariables},
		{"postgres without url", map[string]any{"telegram_api_token": "t"}, ErrMissingEnvironmentVariables},
		{"mongo without uri", map[string]any{"telegram_api_token": "t", "store.backend": BackendMongo}, ErrMissingEnvironmentVariables},
		{"unknown backend", map[string]any{"telegram_api_token": "t", "store.backend": "sqlite"}, ErrUnknownStoreBackend},
		{"postgres", map[string]any{"telegram_api_token": "t", "database_url": "postgres://x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromViper(newTestViper(tt.values))
			if !errors.Is(err, tt.want) {
				t.Errorf("fromViper() error = %v, want %v", err, tt.want)
			}
		})
	}
}
