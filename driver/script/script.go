// Package script drives an external application with a sequence of commands
// read from a TOML step file.
//
// A step file looks like:
//
//	timeout_ms = 10000
//
//	[vars]
//	window = "Messages"
//
//	[[step]]
//	run = "xdotool search --name {{.Vars.window}} windowactivate --sync"
//	pause_ms = 500
//
//	[[step]]
//	run = "xdotool type --delay 80 {{.Number}}"
//	pause_ms = 300
//	jitter_ms = 400
//
//	[verify]
//	run = "xclip -o -selection clipboard"
//
// Each command is split with shell quoting rules first and every argument is
// then expanded on its own, so a number containing spaces stays one
// argument. Write {{.Number}} without inner spaces, or quote the whole
// word. Commands run without a shell.
package script

import (
	"bytes"
	"context"
	"math/rand/v2"
	"os/exec"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/logger"
	"github.com/teranos/callsheet/phone"
)

// DefaultTimeout bounds a single command when the file sets no timeout_ms
const DefaultTimeout = 10 * time.Second

// Step is one command of a step file
type Step struct {
	Run      string `toml:"run"`
	PauseMS  int    `toml:"pause_ms"`  // wait after the command
	JitterMS int    `toml:"jitter_ms"` // random extra wait, 0..jitter_ms
}

// File is a decoded step file
type File struct {
	TimeoutMS int               `toml:"timeout_ms"`
	Vars      map[string]string `toml:"vars"`
	Steps     []Step            `toml:"step"`
	Verify    *Step             `toml:"verify"`
}

// Data is what {{...}} expressions in a command can refer to
type Data struct {
	Number string            // raw value as stored in the ledger
	Digits string            // digits only
	Vars   map[string]string // [vars] table of the step file
}

// Exec runs argv and returns its standard output
type Exec func(ctx context.Context, argv []string) ([]byte, error)

type command struct {
	step Step
	args []*template.Template
}

// Driver runs a step file for every dispatched contact
type Driver struct {
	path    string
	vars    map[string]string
	steps   []command
	verify  *command
	timeout time.Duration
	logger  *zap.SugaredLogger

	exec  Exec
	sleep func(ctx context.Context, d time.Duration) error
	rand  *rand.Rand

	mu   sync.Mutex
	last string
}

// Load reads and compiles the step file at path
func Load(path string, log *zap.SugaredLogger) (*Driver, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to read step file %s", path),
			"a step file needs at least one [[step]] table with a run command",
		)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("unknown keys in step file %s: %v", path, undecoded)
	}
	return New(path, f, log)
}

// Parse compiles a step file held in memory
func Parse(data string, log *zap.SugaredLogger) (*Driver, error) {
	var f File
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse step file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("unknown keys in step file: %v", undecoded)
	}
	return New("", f, log)
}

// New compiles f. Every command is expanded once with a placeholder number so
// missing variables fail here rather than mid-campaign.
func New(path string, f File, log *zap.SugaredLogger) (*Driver, error) {
	if len(f.Steps) == 0 {
		return nil, errors.NewInvalidRequestError("step file %s has no [[step]] entries", path)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	d := &Driver{
		path:    path,
		vars:    f.Vars,
		timeout: DefaultTimeout,
		logger:  log.Named("script"),
		exec:    runCommand,
		sleep:   sleepContext,
		rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	if f.TimeoutMS > 0 {
		d.timeout = time.Duration(f.TimeoutMS) * time.Millisecond
	}

	for i, step := range f.Steps {
		cmd, err := d.compile(step)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d", i+1)
		}
		d.steps = append(d.steps, cmd)
	}
	if f.Verify != nil {
		cmd, err := d.compile(*f.Verify)
		if err != nil {
			return nil, errors.Wrap(err, "verify")
		}
		d.verify = &cmd
	}
	return d, nil
}

func (d *Driver) compile(step Step) (command, error) {
	if step.PauseMS < 0 || step.JitterMS < 0 {
		return command{}, errors.New("pause_ms and jitter_ms must be >= 0")
	}
	words, err := shellquote.Split(step.Run)
	if err != nil {
		return command{}, errors.Wrapf(err, "cannot split %q", step.Run)
	}
	if len(words) == 0 {
		return command{}, errors.New("run is empty")
	}

	cmd := command{step: step}
	for _, w := range words {
		tmpl, err := template.New("arg").Option("missingkey=error").Parse(w)
		if err != nil {
			return command{}, errors.Wrapf(err, "bad template in %q", step.Run)
		}
		cmd.args = append(cmd.args, tmpl)
	}
	if _, err := cmd.render(d.data("0")); err != nil {
		return command{}, err
	}
	return cmd, nil
}

func (c command) render(data Data) ([]string, error) {
	argv := make([]string, 0, len(c.args))
	for _, tmpl := range c.args {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, errors.Wrapf(err, "cannot expand %q", c.step.Run)
		}
		argv = append(argv, buf.String())
	}
	return argv, nil
}

func (d *Driver) data(raw string) Data {
	key, _ := phone.Normalize(raw)
	vars := d.vars
	if vars == nil {
		vars = map[string]string{}
	}
	return Data{Number: raw, Digits: key.String(), Vars: vars}
}

// Dispatch runs every step for raw in order. The first failing step aborts
// the sequence and is reported as an action driver failure.
func (d *Driver) Dispatch(ctx context.Context, raw string) error {
	data := d.data(raw)
	for i, cmd := range d.steps {
		argv, err := cmd.render(data)
		if err != nil {
			return errors.DriverFailure(err, "step failed")
		}

		start := time.Now()
		if _, err := d.run(ctx, argv); err != nil {
			return errors.DriverFailure(errors.Wrapf(err, "step %d (%s)", i+1, argv[0]), "action step failed")
		}
		d.logger.Debugw("Step done",
			"step", i+1,
			logger.FieldAction, argv[0],
			logger.FieldDurationMS, time.Since(start).Milliseconds())

		if err := d.sleep(ctx, d.pause(cmd.step)); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.last = raw
	d.mu.Unlock()
	return nil
}

// CaptureFeedback returns the trimmed output of the verify command. Without
// one, a sequence that ran to completion reports the number it was given.
func (d *Driver) CaptureFeedback(ctx context.Context) (string, error) {
	d.mu.Lock()
	last := d.last
	d.mu.Unlock()

	if d.verify == nil {
		return last, nil
	}
	argv, err := d.verify.render(d.data(last))
	if err != nil {
		return "", errors.DriverFailure(err, "verify failed")
	}
	out, err := d.run(ctx, argv)
	if err != nil {
		return "", errors.DriverFailure(errors.Wrapf(err, "verify (%s)", argv[0]), "verify command failed")
	}
	return strings.TrimSpace(string(out)), nil
}

func (d *Driver) run(ctx context.Context, argv []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.exec(ctx, argv)
}

func (d *Driver) pause(step Step) time.Duration {
	ms := step.PauseMS
	if step.JitterMS > 0 {
		ms += d.rand.IntN(step.JitterMS + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

func runCommand(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = errors.WithDetail(err, msg)
		}
		return out, err
	}
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
