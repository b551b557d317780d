package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/callsheet/errors"
)

func TestReadWithHeaderAndBOM(t *testing.T) {
	in := "\ufeffName,Phone\nAna,064 111\nMarko\n"

	table, err := Read(strings.NewReader(in), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Phone"}, table.Header)
	assert.Equal(t, [][]string{{"Ana", "064 111"}, {"Marko"}}, table.Rows)
	assert.Equal(t, []string{"064 111", ""}, table.Column(1))
}

func TestReadWithoutHeader(t *testing.T) {
	table, err := Read(strings.NewReader("111,called\n222\n"), false)
	require.NoError(t, err)
	assert.Nil(t, table.Header)
	assert.Len(t, table.Rows, 2)
}

func TestReadFileMissingIsSourceUnavailable(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), false)
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestWriteFileKeepsQuoting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	rows := [][]string{{"111", "called", "note, with comma"}, {"222"}}

	require.NoError(t, WriteFile(path, []string{"phone", "status", "note"}, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "phone,status,note\n111,called,\"note, with comma\"\n222\n", string(data))

	back, err := ReadFile(path, true)
	require.NoError(t, err)
	assert.Equal(t, rows, back.Rows)
}
