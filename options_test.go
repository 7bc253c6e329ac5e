package glean_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/glean"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		opt, err := glean.ParseOptions(nil)
		require.NoError(t, err)
		assert.Equal(t, glean.DefaultOptions(), opt)
	})

	t.Run("OK", func(t *testing.T) {
		opt, err := glean.ParseOptions([]byte(`
budget:
  max_duration: 1m30s
  per_path_timeout: 2
max_steps: 500
max_iterations: 10
report_all_violations: true
unsupported_tolerance: 3
workers: 4
log_level: debug
log_format: json
`))
		require.NoError(t, err)

		b := opt.BudgetLimits()
		assert.Equal(t, 90*time.Second, b.MaxDuration)
		assert.Equal(t, 2*time.Second, b.PerPathTimeout)
		assert.Equal(t, glean.DefaultBudget().PerCheckTimeout, b.PerCheckTimeout)
		assert.Equal(t, 500, b.MaxSteps)
		assert.Equal(t, 10, b.MaxIterations)
		assert.True(t, opt.ReportAllViolations)
		assert.Equal(t, 3, opt.UnsupportedTolerance)
		assert.Equal(t, glean.DefaultPatternCacheSize, opt.RegexCacheSize)
		assert.Equal(t, 4, opt.Workers)
		assert.Equal(t, glean.LogFormatJSON, opt.LogFormat)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := glean.ParseOptions([]byte("max_stepz: 1\n"))
		assert.Error(t, err)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, data := range []string{
			"max_steps: -1\n",
			"workers: 0\n",
			"regex_cache_size: 0\n",
			"log_format: xml\n",
			"log_level: loud\n",
			"budget:\n  max_duration: soon\n",
		} {
			_, err := glean.ParseOptions([]byte(data))
			assert.Error(t, err, "data=%q", data)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		opt := glean.DefaultOptions()
		opt.MaxSteps, opt.Workers = 42, 3
		opt.Budget.PerPathTimeout = glean.Duration(1500 * time.Millisecond)

		data, err := opt.Marshal()
		require.NoError(t, err)
		assert.Contains(t, string(data), "per_path_timeout: 1.5s")

		other, err := glean.ParseOptions(data)
		require.NoError(t, err)
		assert.Equal(t, opt, other)
	})
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glean.yml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o666))

	opt, err := glean.LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, 2, opt.Workers)

	require.NoError(t, os.WriteFile(path, []byte("workers: -2\n"), 0o666))
	_, err = glean.LoadOptions(path)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), path+": "), err.Error())

	_, err = glean.LoadOptions(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, os.IsNotExist(err))
}

func TestOptions_Logger(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		opt := glean.DefaultOptions()
		opt.LogFormat, opt.LogLevel = glean.LogFormatJSON, "warn"

		var buf bytes.Buffer
		logger, err := opt.Logger(&buf)
		require.NoError(t, err)
		logger.Info().Msg("hidden")
		logger.Warn().Str("target", "x").Msg("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"target":"x"`)
		assert.Contains(t, buf.String(), `"message":"shown"`)
	})

	t.Run("Console", func(t *testing.T) {
		opt := glean.DefaultOptions()

		var buf bytes.Buffer
		logger, err := opt.Logger(&buf)
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

		logger.Info().Str("target", "x").Msg("analyzed")
		assert.Contains(t, buf.String(), "analyzed")
		assert.Contains(t, buf.String(), "target=x")
	})
}

func TestOptions_NewAnalyzer(t *testing.T) {
	opt := glean.DefaultOptions()
	opt.MaxSteps, opt.UnsupportedTolerance, opt.ReportAllViolations = 7, 2, true

	a := opt.NewAnalyzer(nil, zerolog.Nop())
	assert.Equal(t, 7, a.Budget.MaxSteps)
	assert.Equal(t, 2, a.UnsupportedTolerance)
	assert.True(t, a.ReportAllViolations)
	assert.NotNil(t, a.Patterns)
}
