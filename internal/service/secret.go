package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hostwatch/hostwatch/internal/config"
)

const signingSecretSetting = "auth.jwt_secret"

// SettingsStore is the interface secret resolution needs from the store.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// ResolveSigningSecret returns the configured secret when set. Otherwise it
// loads the generated secret from settings, creating and persisting one on
// first use so issued tokens survive restarts.
func ResolveSigningSecret(ctx context.Context, store SettingsStore, configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}

	stored, err := store.GetSetting(ctx, signingSecretSetting)
	if err == nil && stored != "" {
		return []byte(stored), nil
	}
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return nil, fmt.Errorf("load signing secret: %w", err)
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := store.SetSetting(ctx, signingSecretSetting, secret); err != nil {
		return nil, fmt.Errorf("persist signing secret: %w", err)
	}
	return []byte(secret), nil
}
