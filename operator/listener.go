// Package operator turns operator input into campaign signals.
//
// Listeners run on their own goroutine and only ever post Confirmed and
// AbortRequested; they never touch the ledger.
package operator

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/teranos/callsheet/campaign"
)

// Listener posts operator signals to out until ctx is done, the operator
// aborts, or its input ends. It never closes out.
type Listener interface {
	Listen(ctx context.Context, out chan<- campaign.Signal) error
}

// KeyMap maps key names, as printed by atomicgo.dev/keyboard ("enter",
// "space", "esc", "ctrl+c", "q"), to signals.
type KeyMap struct {
	Confirm []string
	Abort   []string
}

// DefaultKeyMap confirms with enter or space and aborts with q, esc or ctrl+c
var DefaultKeyMap = KeyMap{
	Confirm: []string{"enter", "space"},
	Abort:   []string{"q", "esc", "ctrl+c"},
}

func (m KeyMap) lookup(name string) (campaign.Signal, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range m.Abort {
		if strings.EqualFold(k, name) {
			return campaign.AbortRequested, true
		}
	}
	for _, k := range m.Confirm {
		if strings.EqualFold(k, name) {
			return campaign.Confirmed, true
		}
	}
	return 0, false
}

// KeyListener reads single key presses from the terminal in raw mode.
// Raw mode swallows ctrl+c, so the key map should keep an abort key.
type KeyListener struct {
	keys   KeyMap
	logger *zap.SugaredLogger

	listen func(onKeyPress func(key keys.Key) (stop bool, err error)) error
	press  func(input ...interface{}) error
}

// NewKeyListener creates a KeyListener for the given key map
func NewKeyListener(m KeyMap, log *zap.SugaredLogger) *KeyListener {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &KeyListener{
		keys:   m,
		logger: log.Named("operator"),
		listen: keyboard.Listen,
		press:  keyboard.SimulateKeyPress,
	}
}

// Listen blocks until the operator aborts or ctx is done. The terminal is
// restored before it returns.
func (l *KeyListener) Listen(ctx context.Context, out chan<- campaign.Signal) error {
	var (
		mu      sync.Mutex
		stopped bool
	)
	// stop reports whether the listener was already stopping
	stop := func() bool {
		mu.Lock()
		defer mu.Unlock()
		was := stopped
		stopped = true
		return was
	}
	isStopped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return stopped
	}

	done := make(chan error, 1)
	go func() {
		done <- l.listen(func(key keys.Key) (bool, error) {
			if isStopped() {
				return true, nil
			}
			sig, ok := l.keys.lookup(key.String())
			if !ok {
				return false, nil
			}
			l.logger.Debugw("Operator key", "key", key.String(), "signal", sig.String())

			select {
			case out <- sig:
			case <-ctx.Done():
				stop()
				return true, nil
			}
			if sig == campaign.AbortRequested {
				stop()
				return true, nil
			}
			return false, nil
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if !stop() {
			// Wake the listener so it sees the stop and restores the terminal
			l.press(keys.Key{Code: keys.Escape})
		}
		<-done
		return nil
	}
}

// LineListener reads whole lines, for terminals that cannot do raw mode and
// for piped input. An empty line, "y" or "c" confirms; "q", "quit" or
// "abort" aborts.
type LineListener struct {
	in     io.Reader
	logger *zap.SugaredLogger
}

// NewLineListener creates a LineListener reading from in
func NewLineListener(in io.Reader, log *zap.SugaredLogger) *LineListener {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LineListener{in: in, logger: log.Named("operator")}
}

// Listen returns when input ends, the operator aborts, or ctx is done. A
// read blocked on in outlives a cancelled ctx until in yields or closes.
func (l *LineListener) Listen(ctx context.Context, out chan<- campaign.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(l.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			sig, ok := parseLine(line)
			if !ok {
				l.logger.Debugw("Ignoring operator input", "input", line)
				continue
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return nil
			}
			if sig == campaign.AbortRequested {
				return nil
			}
		}
	}
}

func parseLine(line string) (campaign.Signal, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes", "c":
		return campaign.Confirmed, true
	case "q", "quit", "abort", "stop":
		return campaign.AbortRequested, true
	}
	return 0, false
}

// Interactive reports whether stdin is a terminal
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ForTerminal picks a KeyListener when stdin is a terminal and a
// LineListener otherwise.
func ForTerminal(m KeyMap, log *zap.SugaredLogger) Listener {
	if Interactive() {
		return NewKeyListener(m, log)
	}
	return NewLineListener(os.Stdin, log)
}
