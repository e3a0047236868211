package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source says where a secret value came from
type Source string

const (
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
)

// Lookup resolves a secret. A KEY_FILE variable (Docker secrets) takes
// precedence over KEY itself; the default is used when neither is set.
func Lookup(envKey, defaultValue string) (string, Source, error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", SourceFile, fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), SourceFile, nil
	}

	if value := os.Getenv(envKey); value != "" {
		return value, SourceEnv, nil
	}

	return defaultValue, SourceDefault, nil
}

// GetOptionalSecret retrieves a secret with a default value, never fails
func GetOptionalSecret(envKey, defaultValue string) string {
	value, _, err := Lookup(envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

// Mask hides all but the last four characters of a secret for logging
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
