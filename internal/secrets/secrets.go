package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Get retrieves a secret, supporting both direct env vars and file-based secrets.
// KEY_FILE (Docker secrets pattern) takes precedence over KEY.
func Get(envKey string) (string, error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return os.Getenv(envKey), nil
}

// Lookup retrieves a secret with a default value used when it is unset
func Lookup(envKey string, defaultValue string) (string, error) {
	value, err := Get(envKey)
	if err != nil {
		return "", err
	}
	if value == "" {
		return defaultValue, nil
	}
	return value, nil
}
