package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpmarket/internal/domain"
)

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, 2, exitCodeFor(fmt.Errorf("%w: name", domain.ErrInvalidRequest)))
	assert.Equal(t, 3, exitCodeFor(domain.ErrMarketNotFound))
	assert.Equal(t, 4, exitCodeFor(domain.ErrAlreadyPromoted))
	assert.Equal(t, 5, exitCodeFor(domain.ErrRegistryStatus))
	assert.Equal(t, 1, exitCodeFor(fmt.Errorf("boom")))
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "42"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 42}, ids)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseIDs([]string{bad})
		var exitErr exitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.code)
	}
}

func TestRootRejectsUnknownLogLevel(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"--log-level", "loud", "validate"})
	err := root.Execute()
	var exitErr exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.code)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("markets:\n  - name: hub\n    url: https://hub.example\n"), 0o600))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("markets:\n  - name: hub\n    url: not-a-url\n"), 0o600))

	root := newRootCommand()
	root.SetArgs([]string{"--config", good, "--log-level", "error", "validate"})
	require.NoError(t, root.Execute())

	root = newRootCommand()
	root.SetArgs([]string{"--config", bad, "--log-level", "error", "validate"})
	err := root.Execute()
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 2, exitCodeFor(err))
}

func TestMarketImportDryRunDoesNotOpenStore(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "markets.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"markets":[{"name":"hub","url":"https://hub.example"}]}`), 0o600))

	root := newRootCommand()
	root.SetArgs([]string{"--log-level", "error", "--json", "market", "import", "--dry-run", file})
	require.NoError(t, root.Execute())
}
