package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env names an environment variable holding a path to the secret file.
	// It is consulted only when File is empty.
	Env string
	// Optional makes a missing secret a non-error: Load returns an empty
	// string instead. Useful for services that run without authentication.
	Optional bool
}

// Load returns the resolved secret value from the provided source. Resolution
// order is File, then the file named by Env, then Value. The returned secret
// is always trimmed. An error is returned when no usable secret is found,
// unless the source is marked Optional.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file == "" && src.Env != "" {
		file = strings.TrimSpace(os.Getenv(src.Env))
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.Optional {
			return "", nil
		}
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
