package config

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	secretService = "empathyfine"
	tokenAccount  = "api_token"
)

// GetAPIToken returns the bearer token the local HTTP API requires. The
// token is generated on first use and persisted in the platform secret
// store, so the daemon and CLI clients on the same machine agree on it.
func GetAPIToken() (string, error) {
	if token, err := keychainGet(secretService, tokenAccount); err == nil && token != "" {
		return token, nil
	}

	token := uuid.New().String()
	if err := keychainSet(secretService, tokenAccount, token); err != nil {
		return "", fmt.Errorf("persisting API token: %w", err)
	}
	return token, nil
}
