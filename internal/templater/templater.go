package templater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gc-monitoring/sensor-installer/internal/logger"
)

const (
	// placeholderPrefix is the marker prefix inside a token, e.g. <GC_PLACEHOLDER_FOO>.
	placeholderPrefix = "GC_PLACEHOLDER_"

	// environmentPrefix replaces placeholderPrefix to form the variable name, e.g. GC_FOO.
	environmentPrefix = "GC_"
)

// placeholderPattern matches a complete placeholder token.
var placeholderPattern = regexp.MustCompile(`<` + placeholderPrefix + `[A-Z0-9_]+>`)

var (
	// ErrConfigNotFound is returned when the configuration file is absent.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrUnresolvedPlaceholder is returned when a token's variable is unset.
	// No byte of the file has been rewritten when this is returned.
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

	// errInvalidResult is returned when substitution produces a file that no
	// longer parses as YAML.
	errInvalidResult = errors.New("templated file is not valid YAML")
)

// Lookup resolves an environment variable name to its value.
// os.LookupEnv satisfies it; tests supply maps.
type Lookup func(name string) (string, bool)

// EnvLookup resolves variables against the process environment.
func EnvLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Tokens returns the deduplicated, sorted set of placeholder tokens in content.
func Tokens(content string) []string {
	matches := placeholderPattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))

	for _, token := range matches {
		if _, ok := seen[token]; ok {
			continue
		}

		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}

	sort.Strings(tokens)

	return tokens
}

// EnvironmentVariableFor derives the environment variable name a token
// resolves from: markers are stripped and the placeholder prefix is replaced
// with the environment prefix, so <GC_PLACEHOLDER_FOO> maps to GC_FOO.
func EnvironmentVariableFor(token string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")

	return environmentPrefix + strings.TrimPrefix(name, placeholderPrefix)
}

// Apply substitutes every placeholder token in the file at path with the
// value of its environment variable.
//
// The whole file is read first and every token is resolved before anything is
// written, so a missing variable leaves the file byte-for-byte untouched.
// On success the file contains no remaining tokens and still parses as YAML.
// A file without tokens is a no-op.
func Apply(ctx context.Context, path string, lookup Lookup) error {
	if lookup == nil {
		lookup = EnvLookup
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrConfigNotFound)
		}

		return fmt.Errorf("stat %s: %w", path, err)
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	tokens := Tokens(string(contents))
	if len(tokens) == 0 {
		logger.Debugf(ctx, "No placeholders in %s", path)
		return nil
	}

	replacements, err := resolveAll(tokens, lookup)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	templated := string(contents)
	for token, value := range replacements {
		templated = strings.ReplaceAll(templated, token, value)
	}

	if remaining := Tokens(templated); len(remaining) != 0 {
		// Substituted values re-introduced tokens; refuse to install them.
		return fmt.Errorf("%s: %s: %w", path, remaining[0], ErrUnresolvedPlaceholder)
	}

	var wellFormed any
	if err = yaml.Unmarshal([]byte(templated), &wellFormed); err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, errInvalidResult)
	}

	if err = os.WriteFile(path, []byte(templated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	logger.InfoKV(ctx, "Templated configuration file", "path", path, "placeholders", len(tokens))

	return nil
}

// resolveAll maps every token to its variable's value,
// failing on the first token whose variable is unset.
func resolveAll(tokens []string, lookup Lookup) (map[string]string, error) {
	replacements := make(map[string]string, len(tokens))

	for _, token := range tokens {
		variable := EnvironmentVariableFor(token)

		value, ok := lookup(variable)
		if !ok {
			return nil, fmt.Errorf("%s: %w", variable, ErrUnresolvedPlaceholder)
		}

		replacements[token] = value
	}

	return replacements, nil
}
