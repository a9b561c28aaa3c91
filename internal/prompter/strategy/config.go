package strategy

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Strategy names accepted by [Config].
const (
	NameIncremental  = "incremental"
	NameContentMatch = "content-match"
)

// Sensitivity presets for speakers who read slower or faster than written.
var SensitivityPresets = map[string]float64{
	"slow":   0.7,
	"medium": 1.0,
	"fast":   1.3,
}

var (
	// ErrInvalidConfig is wrapped by every field validation failure.
	ErrInvalidConfig = errors.New("invalid prompter config")
	// ErrUnknownStrategy is returned for a strategy name other than
	// NameIncremental or NameContentMatch.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Config selects and tunes the advance strategy. It is validated once at
// session start and is immutable afterwards.
type Config struct {
	Strategy         string
	Sensitivity      float64
	MinMatchCount    int
	SearchWindowSize int
	MatchFinals      bool // content-match also aligns final events
	Phonetic         bool // enable the phonetic scorer rule
}

// DefaultConfig returns the content-match configuration used by the service.
func DefaultConfig() Config {
	return Config{
		Strategy:         NameContentMatch,
		Sensitivity:      1.0,
		MinMatchCount:    1,
		SearchWindowSize: 30,
		MatchFinals:      true,
	}
}

// Validate reports every invalid field. Values are never clamped.
func (c Config) Validate() error {
	var errs []error

	switch c.Strategy {
	case NameIncremental, NameContentMatch:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy))
	}
	if !(c.Sensitivity > 0) || math.IsInf(c.Sensitivity, 0) {
		errs = append(errs, fmt.Errorf("%w: sensitivity must be > 0, got %v", ErrInvalidConfig, c.Sensitivity))
	}
	if c.MinMatchCount < 1 {
		errs = append(errs, fmt.Errorf("%w: min match count must be >= 1, got %d", ErrInvalidConfig, c.MinMatchCount))
	}
	if c.SearchWindowSize < 1 {
		errs = append(errs, fmt.Errorf("%w: search window size must be >= 1, got %d", ErrInvalidConfig, c.SearchWindowSize))
	}

	return errors.Join(errs...)
}

// ParseSensitivity accepts a preset name (slow, medium, fast) or a decimal
// multiplier. It does not range-check; Validate does.
func ParseSensitivity(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := SensitivityPresets[s]; ok {
		return v, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("sensitivity %q: %w", s, err)
	}
	return v, nil
}
