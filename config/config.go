// Package config loads client settings from defaults, YAML and the environment
// using koanf, and applies loosely-typed option maps onto typed settings.
package config

import (
	"fmt"
	"maps"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load loads settings with priority:
// 1. Environment variables prefixed with GOCURL_ (highest priority)
// 2. The YAML file at path, when path is not empty
// 3. Default values (lowest priority)
func Load(path string) (*Settings, error) {
	var src koanf.Provider
	if path != "" {
		src = file.Provider(path)
	}
	return load(path, src)
}

// LoadBytes is Load with the YAML document supplied in memory.
func LoadBytes(data []byte) (*Settings, error) {
	return load("yaml", rawbytes.Provider(data))
}

func load(name string, src koanf.Provider) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if src != nil {
		raw := koanf.New(".")
		if err := raw.Load(src, yaml.Parser()); err != nil {
			return nil, NewLoadError(name, err)
		}
		if err := k.Load(confmap.Provider(normalizeTree(raw.Raw()), ""), nil); err != nil {
			return nil, NewLoadError(name, err)
		}
	}

	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, &ConfigError{Category: "invalid", Message: "could not decode settings", Err: err}
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func defaults() map[string]any {
	return map[string]any{
		"client.timeout":    DefaultTimeout,
		"client.isajax":     false,
		"client.isjson":     false,
		"client.sslverify":  false,
		"retry.count":       0,
		"retry.emptybody":   false,
		"retry.pause":       "0s",
		"rate.limit":        0,
		"rate.burst":        1,
		"multi.concurrency": 0,
		"log.level":         "info",
		"log.pretty":        false,

		"observability.enabled":     false,
		"observability.servicename": "gocurl",
		"observability.endpoint":    "stdout",
		"observability.protocol":    "http",
		"observability.interval":    "10s",
	}
}

// envKey maps GOCURL_CLIENT_IS_AJAX to client.isajax: the first segment names
// the section, the remainder is normalised into a single key.
func envKey(k, v string) (string, any) {
	k = strings.TrimPrefix(k, EnvPrefix)
	section, rest, found := strings.Cut(k, "_")
	if !found || rest == "" {
		return "", nil
	}
	return NormalizeKey(section) + "." + NormalizeKey(rest), v
}

// NormalizeKey lowercases a key and drops '_' and '-' so that snake, kebab and
// camel spellings of the same option compare equal.
func NormalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		if r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func normalizeTree(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			v = normalizeTree(nested)
		}
		out[NormalizeKey(k)] = v
	}
	return out
}

// clientKeys are the keys FromMap applies; everything else is ignored.
var clientKeys = map[string]struct{}{
	"timeout":     {},
	"isajax":      {},
	"isjson":      {},
	"referer":     {},
	"sslverify":   {},
	"sslcertfile": {},
	"sslkeyfile":  {},
	"curloptions": {},
}

// guardedKeys name runtime or transport-derived state that can never be set
// through a configuration map.
var guardedKeys = map[string]struct{}{
	"ch":                {},
	"error":             {},
	"errorinfo":         {},
	"body":              {},
	"info":              {},
	"responseheaders":   {},
	"url":               {},
	"method":            {},
	"requestdata":       {},
	"headers":           {},
	"retrynumber":       {},
	"retry":             {},
	"retrywhen":         {},
	"retrymilliseconds": {},
	"guarded":           {},
	"options":           {},
}

// IsGuardedKey reports whether key names state that configuration may not set.
func IsGuardedKey(key string) bool {
	_, ok := guardedKeys[NormalizeKey(key)]
	return ok
}

// FromMap applies a loosely-typed option map onto default client settings.
// Recognised keys are applied; guarded and unknown keys are silently ignored.
// Values are converted weakly ("30" becomes 30) and the result is validated.
func FromMap(values map[string]any) (*ClientSettings, error) {
	accepted := make(map[string]any, len(values))
	for key, value := range values {
		norm := NormalizeKey(key)
		if IsGuardedKey(norm) {
			continue
		}
		if _, ok := clientKeys[norm]; !ok {
			continue
		}
		if norm == "curloptions" {
			if opts, ok := value.(map[string]any); ok {
				value = normalizeTree(maps.Clone(opts))
			}
		}
		accepted[norm] = value
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{"timeout": DefaultTimeout}, ""), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(accepted, ""), nil); err != nil {
		return nil, &ConfigError{Category: "invalid", Message: "could not apply options", Err: err}
	}

	var cs ClientSettings
	if err := k.Unmarshal("", &cs); err != nil {
		return nil, &ConfigError{Category: "invalid", Message: "could not decode client options", Err: err}
	}
	if err := validateStruct(&cs); err != nil {
		return nil, err
	}
	return &cs, nil
}
