package tools

import (
	"fmt"
	"strings"
	"time"
)

// Argument extraction helpers. Tool parameters arrive as decoded JSON, so
// numbers are float64 and everything else needs a checked assertion with a
// field-level message.

func stringArg(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%s: required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s: must not be empty", key)
	}
	return s, nil
}

func floatArg(params map[string]any, key string) (float64, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%s: required", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s: must be a number", key)
	}
}

func dateArg(params map[string]any, key string) (string, error) {
	s, err := stringArg(params, key)
	if err != nil {
		return "", err
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", fmt.Errorf("%s: must be a date in YYYY-MM-DD form", key)
	}
	return s, nil
}

func stringListArg(params map[string]any, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("%s: required", key)
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: must be a list of strings", key)
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: must be a string", key, i)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: must not be empty", key)
	}
	return out, nil
}

// transportAliases maps accepted spellings to the canonical mode names.
var transportAliases = map[string]string{
	"train":    "train",
	"bus":      "bus",
	"taxi":     "taxi",
	"airplane": "airplane",
	"plane":    "airplane",
	"電車":       "train",
	"バス":       "bus",
	"タクシー":     "taxi",
	"飛行機":      "airplane",
}

func transportArg(params map[string]any, key string) (string, error) {
	s, err := stringArg(params, key)
	if err != nil {
		return "", err
	}
	mode, ok := transportAliases[strings.ToLower(s)]
	if !ok {
		return "", fmt.Errorf("%s: unknown transport mode %q (expected train, bus, taxi, or airplane)", key, s)
	}
	return mode, nil
}
