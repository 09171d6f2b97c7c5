package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidSTTNames lists the STT provider names known to the service binary.
// Used by [Validate] to warn about unrecognised names.
var ValidSTTNames = []string{"whisper", "whisper-native", "deepgram", "openai"}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default], applies
// defaults and validates the result. Keys absent from the document keep
// their default; keys present are taken as written, zero included. An empty
// document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes %d must not be negative", cfg.Server.MaxUploadBytes))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// STT
	if cfg.STT.Primary.Name == "" && len(cfg.STT.Fallbacks) > 0 {
		errs = append(errs, errors.New("stt.fallbacks are set but stt.primary.name is empty"))
	}
	type namedEntry struct {
		prefix string
		entry  ProviderEntry
	}
	entries := []namedEntry{{"stt.primary", cfg.STT.Primary}}
	for i, e := range cfg.STT.Fallbacks {
		entries = append(entries, namedEntry{fmt.Sprintf("stt.fallbacks[%d]", i), e})
	}
	seen := make(map[string]string)
	for _, ne := range entries {
		prefix, e := ne.prefix, ne.entry
		if e.Name == "" {
			if prefix != "stt.primary" {
				errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			}
			continue
		}
		validateSTTName(e.Name)
		key := e.Name + "|" + e.BaseURL + "|" + e.Model
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("%s duplicates %s", prefix, prev))
		}
		seen[key] = prefix
		switch e.Name {
		case "deepgram", "openai":
			if e.APIKey == "" {
				errs = append(errs, fmt.Errorf("%s: provider %q requires api_key", prefix, e.Name))
			}
		case "whisper":
			if e.BaseURL == "" {
				errs = append(errs, fmt.Errorf("%s: provider %q requires base_url", prefix, e.Name))
			}
		case "whisper-native":
			if e.Model == "" {
				errs = append(errs, fmt.Errorf("%s: provider %q requires model (path to the model file)", prefix, e.Name))
			}
		}
	}
	if len(cfg.STT.Entries()) == 0 {
		slog.Warn("no STT provider configured; /transcribe will be unavailable")
	}

	// Catalog
	if !cfg.Catalog.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("catalog.driver %q is invalid; valid values: memory, postgres, sqlite", cfg.Catalog.Driver))
	}
	if cfg.Catalog.Driver == DriverPostgres && cfg.Catalog.PostgresDSN == "" {
		errs = append(errs, errors.New("catalog.postgres_dsn is required when driver is postgres"))
	}
	if cfg.Catalog.Driver == DriverMemory {
		slog.Debug("catalog driver is memory; songs and scores are lost on restart")
	}

	// Timing
	t := cfg.Timing
	for name, v := range map[string]float64{
		"seconds_per_char":   t.SecondsPerChar,
		"reading_buffer":     t.ReadingBuffer,
		"last_line_gap":      t.LastLineGap,
		"intro_lead":         t.IntroLead,
		"heuristic_intro":    t.HeuristicIntro,
		"line_gap":           t.LineGap,
		"short_word_factor":  t.ShortWordFactor,
		"medium_word_factor": t.MediumWordFactor,
		"long_word_factor":   t.LongWordFactor,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("timing.%s %.2f must not be negative", name, v))
		}
	}
	if t.VocalEndFraction < 0 || t.VocalEndFraction > 1 {
		errs = append(errs, fmt.Errorf("timing.vocal_end_fraction %.2f is out of range [0, 1]", t.VocalEndFraction))
	}

	// Scoring
	if err := cfg.Scoring.Config.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validateSTTName logs a warning if name is not in [ValidSTTNames].
func validateSTTName(name string) {
	if slices.Contains(ValidSTTNames, name) {
		return
	}
	slog.Warn("unknown STT provider name, may be a typo or third-party provider",
		"name", name,
		"known", ValidSTTNames,
	)
}
