// Package validation sanity-checks resolver arguments before execution: oversized
// strings, excessively nested inputs, and obviously hostile payloads are rejected
// at the middleware layer.
package validation

import (
	"fmt"
	"strings"
)

// InputValidator checks argument maps against structural limits. Instances are
// immutable and safe for concurrent use.
type InputValidator struct {
	maxStringLength int
	maxInputDepth   int
	deniedPatterns  []string
}

// Config holds validator limits. Zero values fall back to defaults.
type Config struct {
	MaxStringLength int
	MaxInputDepth   int
	DeniedPatterns  []string
}

// New creates an InputValidator.
func New(cfg Config) *InputValidator {
	if cfg.MaxStringLength <= 0 {
		cfg.MaxStringLength = 10000
	}
	if cfg.MaxInputDepth <= 0 {
		cfg.MaxInputDepth = 10
	}
	return &InputValidator{
		maxStringLength: cfg.MaxStringLength,
		maxInputDepth:   cfg.MaxInputDepth,
		deniedPatterns:  cfg.DeniedPatterns,
	}
}

// Validate checks one argument map. The returned error names the offending
// argument path.
func (v *InputValidator) Validate(args map[string]any) error {
	for name, value := range args {
		if err := v.validateValue(name, value, 1); err != nil {
			return err
		}
	}
	return nil
}

func (v *InputValidator) validateValue(path string, value any, depth int) error {
	if depth > v.maxInputDepth {
		return fmt.Errorf("argument %q exceeds maximum input depth %d", path, v.maxInputDepth)
	}

	switch val := value.(type) {
	case string:
		if len(val) > v.maxStringLength {
			return fmt.Errorf("argument %q exceeds maximum string length %d", path, v.maxStringLength)
		}
		for _, pattern := range v.deniedPatterns {
			if strings.Contains(val, pattern) {
				return fmt.Errorf("argument %q contains a denied pattern", path)
			}
		}
	case map[string]any:
		for name, nested := range val {
			if err := v.validateValue(path+"."+name, nested, depth+1); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range val {
			if err := v.validateValue(fmt.Sprintf("%s[%d]", path, i), item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
