package main

import (
	"flag"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", excerpt("short text", 20))
	assert.Equal(t, "one two", excerpt("one\n  two", 20), "whitespace collapses to single spaces")
	assert.Equal(t, "abcde...", excerpt("abcdefghij", 5))
}

func TestSetupLogger(t *testing.T) {
	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			set := flag.NewFlagSet("test", 0)
			set.String("log-level", level, "")
			c := cli.NewContext(cli.NewApp(), set, nil)

			require.NoError(t, setupLogger(c), "level %q", level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		set := flag.NewFlagSet("test", 0)
		set.String("log-level", "verbose", "")
		c := cli.NewContext(cli.NewApp(), set, nil)

		err := setupLogger(c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verbose")
	})

	t.Run("debug level enables debug logging", func(t *testing.T) {
		set := flag.NewFlagSet("test", 0)
		set.String("log-level", "debug", "")
		c := cli.NewContext(cli.NewApp(), set, nil)

		require.NoError(t, setupLogger(c))
		assert.True(t, slog.Default().Enabled(nil, slog.LevelDebug))
	})
}

func TestBuildConfigFlagPrecedence(t *testing.T) {
	set := flag.NewFlagSet("test", 0)
	set.Int("workers", 0, "")
	set.Int("batch-size", 0, "")
	set.Duration("flush-timeout", 0, "")
	set.String("config", "", "")
	require.NoError(t, set.Set("workers", "7"))

	c := cli.NewContext(cli.NewApp(), set, nil)

	config, err := buildConfig(c)
	require.NoError(t, err)

	assert.Equal(t, 7, config.Workers, "explicit flag overrides the default")
	assert.Equal(t, 32, config.BatchSize, "unset flag keeps the default")
}
