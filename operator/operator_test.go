package operator

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"atomicgo.dev/keyboard/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/callsheet/campaign"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeKeyboard replays pending keys, then waits for simulated presses
type fakeKeyboard struct {
	pending []keys.Key
	wake    chan keys.Key
}

func newFakeKeyboard(pending ...keys.Key) *fakeKeyboard {
	return &fakeKeyboard{pending: pending, wake: make(chan keys.Key)}
}

func (f *fakeKeyboard) listen(onKeyPress func(key keys.Key) (bool, error)) error {
	for _, k := range f.pending {
		if stop, err := onKeyPress(k); err != nil || stop {
			return err
		}
	}
	for k := range f.wake {
		if stop, err := onKeyPress(k); err != nil || stop {
			return err
		}
	}
	return nil
}

func (f *fakeKeyboard) press(input ...interface{}) error {
	for _, in := range input {
		if k, ok := in.(keys.Key); ok {
			f.wake <- k
		}
	}
	return nil
}

func keyListener(t *testing.T, m KeyMap, kb *fakeKeyboard) *KeyListener {
	l := NewKeyListener(m, zaptest.NewLogger(t).Sugar())
	l.listen = kb.listen
	l.press = kb.press
	return l
}

func drain(out chan campaign.Signal) []campaign.Signal {
	var got []campaign.Signal
	for {
		select {
		case s := <-out:
			got = append(got, s)
		default:
			return got
		}
	}
}

func TestKeyListenerPostsSignals(t *testing.T) {
	kb := newFakeKeyboard(
		keys.Key{Code: keys.Enter},
		keys.Key{Code: keys.RuneKey, Runes: []rune{'x'}},
		keys.Key{Code: keys.Space},
		keys.Key{Code: keys.RuneKey, Runes: []rune{'q'}},
		keys.Key{Code: keys.Enter},
	)
	out := make(chan campaign.Signal, 8)

	err := keyListener(t, DefaultKeyMap, kb).Listen(context.Background(), out)
	require.NoError(t, err)

	assert.Equal(t, []campaign.Signal{campaign.Confirmed, campaign.Confirmed, campaign.AbortRequested}, drain(out),
		"unmapped keys are ignored and nothing is read after an abort")
}

func TestKeyListenerStopsOnCancel(t *testing.T) {
	kb := newFakeKeyboard(keys.Key{Code: keys.Enter})
	out := make(chan campaign.Signal, 1)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- keyListener(t, DefaultKeyMap, kb).Listen(ctx, out) }()

	assert.Equal(t, campaign.Confirmed, <-out)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestKeyListenerCustomMap(t *testing.T) {
	kb := newFakeKeyboard(
		keys.Key{Code: keys.Enter},
		keys.Key{Code: keys.RuneKey, Runes: []rune{'v'}},
		keys.Key{Code: keys.CtrlX},
	)
	out := make(chan campaign.Signal, 4)
	m := KeyMap{Confirm: []string{"v"}, Abort: []string{"ctrl+x"}}

	require.NoError(t, keyListener(t, m, kb).Listen(context.Background(), out))
	assert.Equal(t, []campaign.Signal{campaign.Confirmed, campaign.AbortRequested}, drain(out))
}

func TestLineListener(t *testing.T) {
	out := make(chan campaign.Signal, 8)
	in := strings.NewReader("\ny\nwhat?\nQ\nc\n")

	require.NoError(t, NewLineListener(in, nil).Listen(context.Background(), out))
	assert.Equal(t, []campaign.Signal{campaign.Confirmed, campaign.Confirmed, campaign.AbortRequested}, drain(out))
}

func TestLineListenerEndOfInput(t *testing.T) {
	out := make(chan campaign.Signal, 8)
	require.NoError(t, NewLineListener(strings.NewReader("yes\n"), nil).Listen(context.Background(), out))
	assert.Equal(t, []campaign.Signal{campaign.Confirmed}, drain(out))
}

func TestLineListenerStopsOnCancel(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan campaign.Signal, 1)
	errc := make(chan error, 1)
	go func() { errc <- NewLineListener(r, nil).Listen(ctx, out) }()

	_, err := w.Write([]byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, campaign.Confirmed, <-out)

	cancel()
	assert.NoError(t, <-errc)
}

func TestPromptContinuer(t *testing.T) {
	var asked string
	p := &PromptContinuer{confirm: func(text string) (bool, error) {
		asked = text
		return true, nil
	}}

	ok, err := p.Continue(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, asked, "Test batch of 2 done")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Continue(ctx, 2)
	assert.Error(t, err)
}
