package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	cmd := rootCmd()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "version"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("env-file"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "timetable version 0.1.0 (build: dev)\n", out.String())
}

func TestServeNeedsJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--env-file", filepath.Join(t.TempDir(), "none.env")})

	assert.ErrorContains(t, cmd.Execute(), "JWT_SECRET")
}

func TestSetupLogLevelOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "info")

	cfg, logger, err := setup(filepath.Join(t.TempDir(), "none.env"), "debug")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NotNil(t, logger)
}

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()

	rdb, err := connectRedis(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, rdb)

	_, err = connectRedis(ctx, "not a url")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rdb, err = connectRedis(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, rdb)
	defer rdb.Close()
	assert.NoError(t, rdb.Ping(ctx).Err())
}
