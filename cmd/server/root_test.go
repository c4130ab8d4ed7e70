package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiresSubcommands(t *testing.T) {
	cmd := newRootCmd()

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
	assert.NotNil(t, serve.Flags().Lookup("skip-migrations"))

	migrate, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.Equal(t, "migrate", migrate.Name())

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRootOptionsLoadRejectsBadConfig(t *testing.T) {
	t.Setenv("TESTCRAFT_LOG_LEVEL", "loud")
	opts := &rootOptions{configDir: t.TempDir()}
	_, _, err := opts.load()
	require.Error(t, err)
}
