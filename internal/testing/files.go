package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to path, creating parent folders, and returns path
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ReadFile returns the contents of path
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// WriteLedger writes a ledger file into a fresh temp dir and returns its path
func WriteLedger(t *testing.T, content string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(t.TempDir(), "contacts.csv"), content)
}
