package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// MissingCredentialError is returned when a required key is absent from
// every credential source.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing credential %s: set it in the secrets store, the environment or .env", e.Name)
}

// SecretSources lists where credentials are looked up, in priority order:
// one file per key under Dir, the process environment, then DotEnvPath.
type SecretSources struct {
	Dir        string // e.g. /run/secrets
	DotEnvPath string // e.g. .env
}

func defaultSecretSources() SecretSources {
	return SecretSources{
		Dir:        getenv("SECRETS_DIR", "/run/secrets"),
		DotEnvPath: getenv("DOTENV_PATH", ".env"),
	}
}

// Lookup returns the first non-empty value for name.
func (s SecretSources) Lookup(name string) (string, bool) {
	if s.Dir != "" {
		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err == nil {
			if v := strings.TrimSpace(string(data)); v != "" {
				return v, true
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, true
	}

	if s.DotEnvPath != "" {
		// Read, not Load: .env values never leak into the process environment.
		vals, err := godotenv.Read(s.DotEnvPath)
		if err == nil {
			if v := strings.TrimSpace(vals[name]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Require is Lookup that fails with *MissingCredentialError.
func (s SecretSources) Require(name string) (string, error) {
	if v, ok := s.Lookup(name); ok {
		return v, nil
	}
	return "", &MissingCredentialError{Name: name}
}

// ResolveSecret looks name up in the default sources.
func ResolveSecret(name string) (string, error) {
	return defaultSecretSources().Require(name)
}
