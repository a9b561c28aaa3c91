// Package config loads service configuration from the environment.
//
// Unparsable values fall back to their defaults, except for the alignment
// settings (strategy, sensitivity, min match count, search window): those
// parse errors are kept and reported by Validate. Values that parse but are
// out of range are passed through unchanged, so that session start can
// reject them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ai-teleprompter-service/internal/prompter/strategy"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Prompter      PrompterConfig
	Recognition   RecognitionConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig

	parseErrs []error
}

type ServiceConfig struct {
	Principal string
	GRPCPort  string
	HTTPPort  string
}

// PrompterConfig drives the alignment core.
type PrompterConfig struct {
	ScriptFile      string
	ScriptText      string
	Strategy        string
	Sensitivity     float64
	MinMatchCount   int
	SearchWindow    int
	MatchFinals     bool
	PhoneticMatch   bool
	EquivalenceFile string
	SkipWords       int
	WPMInterval     time.Duration
}

type RecognitionConfig struct {
	Source        string // mock, kafka
	MockInterval  time.Duration
	MockUtterance int
	MaxRetries    int
	Backoff       time.Duration
	MaxBackoff    time.Duration
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicPartial  string
	TopicFinal    string
	TopicCursor   string
	GroupID       string
	InteractionID string
	FinalGrace    time.Duration
	Principal     string
}

type ObservabilityConfig struct {
	Addr      string
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-teleprompter")

	var parseErrs []error
	sensitivity, err := envSensitivity("PROMPTER_SENSITIVITY", 1.0)
	parseErrs = appendErr(parseErrs, err)
	minMatch, err := envInt("PROMPTER_MIN_MATCH_COUNT", 1)
	parseErrs = appendErr(parseErrs, err)
	window, err := envInt("PROMPTER_SEARCH_WINDOW", 30)
	parseErrs = appendErr(parseErrs, err)

	return &Config{
		parseErrs: parseErrs,
		Service: ServiceConfig{
			Principal: principal,
			GRPCPort:  envOrDefault("GRPC_PORT", "50052"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Prompter: PrompterConfig{
			ScriptFile:      os.Getenv("PROMPTER_SCRIPT_FILE"),
			ScriptText:      os.Getenv("PROMPTER_SCRIPT_TEXT"),
			Strategy:        envOrDefault("PROMPTER_STRATEGY", strategy.NameContentMatch),
			Sensitivity:     sensitivity,
			MinMatchCount:   minMatch,
			SearchWindow:    window,
			MatchFinals:     envOrDefaultBool("PROMPTER_MATCH_FINALS", true),
			PhoneticMatch:   envOrDefaultBool("PROMPTER_PHONETIC_MATCH", false),
			EquivalenceFile: os.Getenv("PROMPTER_EQUIVALENCE_FILE"),
			SkipWords:       envOrDefaultInt("PROMPTER_SKIP_WORDS", 10),
			WPMInterval:     envOrDefaultDuration("PROMPTER_WPM_INTERVAL", time.Second),
		},
		Recognition: RecognitionConfig{
			Source:        envOrDefault("RECOGNITION_SOURCE", "mock"),
			MockInterval:  envOrDefaultDuration("RECOGNITION_MOCK_INTERVAL", 300*time.Millisecond),
			MockUtterance: envOrDefaultInt("RECOGNITION_MOCK_UTTERANCE_WORDS", 6),
			MaxRetries:    envOrDefaultInt("RECOGNITION_MAX_RETRIES", 5),
			Backoff:       envOrDefaultDuration("RECOGNITION_BACKOFF", 500*time.Millisecond),
			MaxBackoff:    envOrDefaultDuration("RECOGNITION_MAX_BACKOFF", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicPartial:  envOrDefault("KAFKA_TOPIC_PARTIAL", "interaction.transcript.partial"),
			TopicFinal:    envOrDefault("KAFKA_TOPIC_FINAL", "interaction.transcript.final"),
			TopicCursor:   envOrDefault("KAFKA_TOPIC_CURSOR", "prompter.cursor"),
			GroupID:       envOrDefault("KAFKA_GROUP_ID", principal),
			InteractionID: os.Getenv("KAFKA_INTERACTION_ID"),
			FinalGrace:    envOrDefaultDuration("KAFKA_FINAL_GRACE", 500*time.Millisecond),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			Addr:      envOrDefault("OBSERVABILITY_ADDR", ":9090"),
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate reports unparsable alignment settings and every out-of-range
// strategy field. Both wrap strategy.ErrInvalidConfig.
func (c *Config) Validate() error {
	errs := append([]error{}, c.parseErrs...)
	if err := c.StrategyConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StrategyConfig maps the prompter settings onto the alignment core's
// configuration. It does not validate.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		Strategy:         c.Prompter.Strategy,
		Sensitivity:      c.Prompter.Sensitivity,
		MinMatchCount:    c.Prompter.MinMatchCount,
		SearchWindowSize: c.Prompter.SearchWindow,
		MatchFinals:      c.Prompter.MatchFinals,
		Phonetic:         c.Prompter.PhoneticMatch,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// envInt is envOrDefaultInt for settings whose parse errors must surface.
func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q is not an integer", strategy.ErrInvalidConfig, key, v)
	}
	return n, nil
}

func envSensitivity(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strategy.ParseSensitivity(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s: %v", strategy.ErrInvalidConfig, key, err)
	}
	return f, nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
