package glean

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
)

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Duration is a time.Duration encoded as a string such as "1m30s".
type Duration time.Duration

// UnmarshalYAML decodes a duration string. Bare integers are seconds.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return err
	}

	switch v := v.(type) {
	case string:
		x, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(x)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case uint64:
		*d = Duration(time.Duration(v) * time.Second)
	case int64:
		*d = Duration(time.Duration(v) * time.Second)
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// BudgetOptions holds the time limits of an analysis.
type BudgetOptions struct {
	MaxDuration     Duration `yaml:"max_duration"`
	PerPathTimeout  Duration `yaml:"per_path_timeout"`
	PerCheckTimeout Duration `yaml:"per_check_timeout"`
}

// Options is the configuration of a set of analyses, usually loaded from a
// YAML file.
type Options struct {
	Budget               BudgetOptions `yaml:"budget"`
	MaxSteps             int           `yaml:"max_steps"`
	MaxIterations        int           `yaml:"max_iterations"`
	ReportAllViolations  bool          `yaml:"report_all_violations"`
	UnsupportedTolerance int           `yaml:"unsupported_tolerance"`
	RegexCacheSize       int           `yaml:"regex_cache_size"`
	Workers              int           `yaml:"workers"`
	LogLevel             string        `yaml:"log_level"`
	LogFormat            string        `yaml:"log_format"`
}

// DefaultOptions returns the options used when no file is given.
func DefaultOptions() Options {
	b := DefaultBudget()
	return Options{
		Budget: BudgetOptions{
			MaxDuration:     Duration(b.MaxDuration),
			PerPathTimeout:  Duration(b.PerPathTimeout),
			PerCheckTimeout: Duration(b.PerCheckTimeout),
		},
		MaxSteps:             b.MaxSteps,
		UnsupportedTolerance: -1,
		RegexCacheSize:       DefaultPatternCacheSize,
		Workers:              1,
		LogLevel:             "info",
		LogFormat:            LogFormatConsole,
	}
}

// LoadOptions reads options from a YAML file. Fields missing from the file
// keep their default value.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	opt, err := ParseOptions(data)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opt, nil
}

// ParseOptions decodes YAML options over the defaults.
func ParseOptions(data []byte) (Options, error) {
	opt := DefaultOptions()
	if err := yaml.UnmarshalWithOptions(data, &opt, yaml.Strict()); err != nil {
		return Options{}, err
	} else if err := opt.Validate(); err != nil {
		return Options{}, err
	}
	return opt, nil
}

// Validate returns an error if an option is out of range.
func (opt *Options) Validate() error {
	switch {
	case opt.MaxSteps < 0:
		return fmt.Errorf("max_steps must not be negative")
	case opt.MaxIterations < 0:
		return fmt.Errorf("max_iterations must not be negative")
	case opt.Budget.MaxDuration < 0 || opt.Budget.PerPathTimeout < 0 || opt.Budget.PerCheckTimeout < 0:
		return fmt.Errorf("budget durations must not be negative")
	case opt.RegexCacheSize <= 0:
		return fmt.Errorf("regex_cache_size must be positive")
	case opt.Workers <= 0:
		return fmt.Errorf("workers must be positive")
	case opt.LogFormat != LogFormatConsole && opt.LogFormat != LogFormatJSON:
		return fmt.Errorf("invalid log_format: %q", opt.LogFormat)
	}
	if _, err := zerolog.ParseLevel(opt.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Marshal encodes the options as YAML.
func (opt *Options) Marshal() ([]byte, error) {
	return yaml.Marshal(opt)
}

// BudgetLimits returns the exploration budget described by the options.
func (opt *Options) BudgetLimits() Budget {
	return Budget{
		MaxSteps:        opt.MaxSteps,
		MaxDuration:     time.Duration(opt.Budget.MaxDuration),
		PerPathTimeout:  time.Duration(opt.Budget.PerPathTimeout),
		PerCheckTimeout: time.Duration(opt.Budget.PerCheckTimeout),
		MaxIterations:   opt.MaxIterations,
	}
}

// Logger returns a logger writing to w at the configured level & format.
func (opt *Options) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(opt.LogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch opt.LogFormat {
	case LogFormatJSON:
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
	case LogFormatConsole, "":
		return zerolog.New(zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
			cw.Out = w
			cw.NoColor = true
			cw.TimeFormat = time.TimeOnly
		})).Level(level).With().Timestamp().Logger(), nil
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log_format: %q", opt.LogFormat)
	}
}

// NewAnalyzer returns an Analyzer using solver configured by the options.
func (opt *Options) NewAnalyzer(solver Solver, logger zerolog.Logger) *Analyzer {
	a := NewAnalyzer(solver)
	a.Budget = opt.BudgetLimits()
	a.ReportAllViolations = opt.ReportAllViolations
	a.UnsupportedTolerance = opt.UnsupportedTolerance
	a.Patterns = NewPatternCache(opt.RegexCacheSize)
	a.Logger = logger
	return a
}
