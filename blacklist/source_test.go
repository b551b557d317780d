package blacklist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/callsheet/errors"
)

const sheetID = "1AbCdEfGhIjKlMnOpQrStUvWxYz_0123456789"

func TestExtractSheetID(t *testing.T) {
	tests := map[string]string{
		sheetID: sheetID,
		"https://docs.google.com/spreadsheets/d/" + sheetID + "/edit#gid=0": sheetID,
		"https://drive.google.com/open?id=" + sheetID:                       sheetID,
		"https://docs.google.com/d/" + sheetID + "/view":                    sheetID,
		"short_id":  "",
		"not a url": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtractSheetID(in), in)
	}
}

func TestCandidates(t *testing.T) {
	local := filepath.Join(t.TempDir(), "bl.csv")
	require.NoError(t, os.WriteFile(local, []byte("x,111\n"), 0644))

	t.Run("local file", func(t *testing.T) {
		got, err := NewSource(local, SourceOptions{}, nil).Candidates()
		require.NoError(t, err)
		assert.Equal(t, []string{local}, got)
	})

	t.Run("bare sheet id", func(t *testing.T) {
		got, err := NewSource(sheetID, SourceOptions{}, nil).Candidates()
		require.NoError(t, err)
		base := "https://docs.google.com/spreadsheets/d/" + sheetID
		assert.Equal(t, []string{
			base + "/export?format=csv",
			base + "/gviz/tq?tqx=out:csv",
			base + "/export?format=csv&gid=0",
		}, got)
	})

	t.Run("sheet link with gid", func(t *testing.T) {
		src := NewSource("https://docs.google.com/spreadsheets/d/"+sheetID+"/edit", SourceOptions{Sheet: "42"}, nil)
		got, err := src.Candidates()
		require.NoError(t, err)
		assert.Contains(t, got[0], "export?format=csv&gid=42")
	})

	t.Run("plain url is used as is", func(t *testing.T) {
		u := "https://example.com/d/lists/blacklist.csv"
		got, err := NewSource(u, SourceOptions{}, nil).Candidates()
		require.NoError(t, err)
		assert.Equal(t, []string{u}, got)
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := NewSource("  ", SourceOptions{}, nil).Candidates()
		require.Error(t, err)
		assert.True(t, errors.IsSourceUnavailable(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewSource("nope", SourceOptions{}, nil).Candidates()
		assert.True(t, errors.IsSourceUnavailable(err))
	})
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.csv")
	require.NoError(t, os.WriteFile(path, []byte("Ana,+1 (555) 010-1111\nMarko,555-010-2222\nshort\n"), 0644))

	set, err := NewSource(path, SourceOptions{Column: 1}, zaptest.NewLogger(t).Sugar()).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("15550101111"))
	assert.True(t, set.Contains("5550102222"))
}

// The first export endpoint answers with a sign-in page and the second with
// an error; the third one serves the CSV.
func TestFetchSheetFallsBackThroughCandidates(t *testing.T) {
	var mu sync.Mutex
	var hits []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.RequestURI())
		mu.Unlock()

		switch {
		case r.URL.Path == "/"+sheetID+"/gviz/tq":
			http.Error(w, "nope", http.StatusInternalServerError)
		case r.URL.Query().Get("gid") == "0":
			w.Write([]byte("x,5550101111\ny,5550103333\n"))
		default:
			w.Write([]byte("<!DOCTYPE html><html>sign in</html>"))
		}
	}))
	defer srv.Close()

	src := NewSource(sheetID, SourceOptions{Column: 1, Timeout: 5 * time.Second, AllowPrivate: true}, zaptest.NewLogger(t).Sugar())
	src.sheetBase = srv.URL + "/"

	set, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 3)
	assert.Contains(t, hits[2], "gid=0")
}

func TestFetchAllCandidatesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src := NewSource(sheetID, SourceOptions{Column: 1, Timeout: 5 * time.Second, AllowPrivate: true}, nil)
	src.sheetBase = srv.URL + "/"

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestFetchRejectsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one-column.csv")
	require.NoError(t, os.WriteFile(path, []byte("111\n222\n"), 0644))

	_, err := NewSource(path, SourceOptions{Column: 1}, nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))
}

func TestFetchBlocksLoopbackByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x,111\n"))
	}))
	defer srv.Close()

	_, err := NewSource(srv.URL+"/list.csv", SourceOptions{Column: 1, Timeout: 2 * time.Second}, nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))
}
