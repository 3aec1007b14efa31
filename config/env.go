package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envRef matches ${VAR} and ${VAR:-default} references in config values.
var envRef = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv substitutes environment references in one scalar. An unset or
// empty variable resolves to its default when one is given, otherwise to "".
func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		groups := envRef.FindStringSubmatch(ref)
		if val := os.Getenv(groups[1]); val != "" {
			return val
		}
		return groups[2]
	})
}

// retype restores the YAML scalar type a substitution turned into a string,
// so `port: ${CANOPYA_PORT:-8000}` still decodes as a number.
func retype(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return strings.EqualFold(s, "true")
	}
	return s
}

// expandTree walks a decoded YAML tree expanding environment references in
// every string value, in place. Only substituted scalars are re-typed;
// literal strings pass through untouched.
func expandTree(node any) any {
	switch v := node.(type) {
	case map[string]any:
		for key, val := range v {
			v[key] = expandTree(val)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = expandTree(item)
		}
		return v
	case string:
		if expanded := expandEnv(v); expanded != v {
			return retype(expanded)
		}
		return v
	default:
		return node
	}
}

// LoadEnvFiles loads .env.local then .env into the process environment.
// Variables already set win, per godotenv semantics; missing files are fine.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		err := godotenv.Load(name)
		if err == nil || os.IsNotExist(err) {
			continue
		}
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	return nil
}
