// Package clipboard hands contacts to the operator through the system clipboard.
//
// Dispatch copies the number; the operator pastes it into the dialer or
// messaging app and confirms. CaptureFeedback reads the clipboard back so the
// runner can check nothing else overwrote it in between.
package clipboard

import (
	"context"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/logger"
)

// Package-level variables to allow mocking in tests.
var (
	clipboardWriteAll    = clipboard.WriteAll
	clipboardReadAll     = clipboard.ReadAll
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
)

// Driver is a clipboard hand-off driver
type Driver struct {
	logger *zap.SugaredLogger
}

// New creates a Driver. It fails when no clipboard utility is available.
func New(log *zap.SugaredLogger) (*Driver, error) {
	if clipboardUnsupported() {
		return nil, errors.WithHint(
			errors.New("clipboard is not supported on this system"),
			"install xclip, xsel or wl-clipboard, or set driver.kind to \"script\" or \"echo\"",
		)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Driver{logger: log.Named("clipboard")}, nil
}

// Dispatch copies raw to the clipboard
func (d *Driver) Dispatch(ctx context.Context, raw string) error {
	if err := clipboardWriteAll(raw); err != nil {
		return errors.DriverFailure(err, "failed to copy to clipboard")
	}
	d.logger.Debugw("Copied to clipboard", logger.FieldContact, raw)
	return nil
}

// CaptureFeedback returns the current clipboard contents
func (d *Driver) CaptureFeedback(ctx context.Context) (string, error) {
	text, err := clipboardReadAll()
	if err != nil {
		return "", errors.DriverFailure(err, "failed to read clipboard")
	}
	return text, nil
}
