package script

import (
	"context"
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

type fakeExec struct {
	mu    sync.Mutex
	calls [][]string
	out   map[string]string // stdout by command name
	fail  map[string]bool
}

func (f *fakeExec) run(ctx context.Context, argv []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, argv)
	if f.fail[argv[0]] {
		return nil, errors.New("exit status 1")
	}
	return []byte(f.out[argv[0]]), nil
}

func stub(t *testing.T, d *Driver, f *fakeExec) *[]time.Duration {
	t.Helper()
	var pauses []time.Duration
	d.exec = f.run
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		pauses = append(pauses, dur)
		return nil
	}
	return &pauses
}

const steps = `
[vars]
window = "Messages"

[[step]]
run = "xdotool search --name {{.Vars.window}} windowactivate"
pause_ms = 500

[[step]]
run = "xdotool type {{.Number}}"
pause_ms = 300
jitter_ms = 100

[[step]]
run = "dial --digits={{.Digits}}"
`

func TestDispatchRunsStepsInOrder(t *testing.T) {
	d, err := Parse(steps, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	f := &fakeExec{}
	pauses := stub(t, d, f)

	require.NoError(t, d.Dispatch(context.Background(), "+381 64 111-222"))

	assert.Equal(t, [][]string{
		{"xdotool", "search", "--name", "Messages", "windowactivate"},
		{"xdotool", "type", "+381 64 111-222"},
		{"dial", "--digits=38164111222"},
	}, f.calls, "the number stays a single argument")

	require.Len(t, *pauses, 3)
	assert.Equal(t, 500*time.Millisecond, (*pauses)[0])
	assert.GreaterOrEqual(t, (*pauses)[1], 300*time.Millisecond)
	assert.LessOrEqual(t, (*pauses)[1], 400*time.Millisecond)
	assert.Equal(t, time.Duration(0), (*pauses)[2])
}

func TestFeedbackWithoutVerifyReportsDispatchedNumber(t *testing.T) {
	d, err := Parse(steps, nil)
	require.NoError(t, err)
	stub(t, d, &fakeExec{})

	require.NoError(t, d.Dispatch(context.Background(), "111"))
	got, err := d.CaptureFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "111", got)
}

func TestFeedbackFromVerifyCommand(t *testing.T) {
	d, err := Parse(steps+`
[verify]
run = "xclip -o"
`, nil)
	require.NoError(t, err)

	f := &fakeExec{out: map[string]string{"xclip": "  112\n"}}
	stub(t, d, f)

	require.NoError(t, d.Dispatch(context.Background(), "111"))
	got, err := d.CaptureFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "112", got)
}

func TestFailingStepStopsSequence(t *testing.T) {
	d, err := Parse(steps, nil)
	require.NoError(t, err)

	f := &fakeExec{fail: map[string]bool{"xdotool": true}}
	stub(t, d, f)

	err = d.Dispatch(context.Background(), "111")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrActionDriverFailure))
	assert.Contains(t, err.Error(), "step 1 (xdotool)")
	assert.Len(t, f.calls, 1)
}

func TestFailingVerifyIsDriverFailure(t *testing.T) {
	d, err := Parse(steps+"\n[verify]\nrun = \"xclip -o\"\n", nil)
	require.NoError(t, err)
	stub(t, d, &fakeExec{fail: map[string]bool{"xclip": true}})

	_, err = d.CaptureFeedback(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrActionDriverFailure))
}

func TestRealCommands(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("needs a POSIX shell")
	}

	d, err := Parse(`
[[step]]
run = "true"

[verify]
run = "echo {{.Number}}"
`, nil)
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(context.Background(), "111"))
	got, err := d.CaptureFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "111", got)

	failing, err := Parse(`
[[step]]
run = "sh -c 'echo boom >&2; exit 3'"
`, nil)
	require.NoError(t, err)
	err = failing.Dispatch(context.Background(), "111")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrActionDriverFailure))
	assert.Contains(t, errors.FlattenDetails(err), "boom")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.toml")
	require.NoError(t, os.WriteFile(path, []byte(steps), 0644))

	d, err := Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, d.steps, 3)
	assert.Nil(t, d.verify)
}

func TestParseRejectsBadFiles(t *testing.T) {
	tests := map[string]string{
		"no steps":        `[vars]` + "\n" + `a = "b"`,
		"unknown key":     "[[step]]\nrun = \"true\"\nwait = 3\n",
		"empty run":       "[[step]]\nrun = \"  \"\n",
		"unbalanced":      "[[step]]\nrun = \"echo 'oops\"\n",
		"missing var":     "[[step]]\nrun = \"open {{.Vars.app}}\"\n",
		"bad template":    "[[step]]\nrun = \"type {{.Number\"\n",
		"negative pause":  "[[step]]\nrun = \"true\"\npause_ms = -1\n",
		"not toml at all": "[[step]\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data, nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}
