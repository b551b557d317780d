// Package driver selects the external action driver a campaign dispatches
// contacts to.
package driver

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/callsheet/campaign"
	"github.com/teranos/callsheet/config"
	"github.com/teranos/callsheet/driver/clipboard"
	"github.com/teranos/callsheet/driver/script"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/logger"
)

// New returns the driver named by cfg.Kind
func New(cfg config.DriverConfig, log *zap.SugaredLogger) (campaign.Driver, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	switch cfg.Kind {
	case config.DriverClipboard:
		d, err := clipboard.New(log)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.DriverScript:
		d, err := script.Load(cfg.Script, log)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.DriverEcho:
		return NewEcho(log), nil
	}
	return nil, errors.NewInvalidRequestError("unknown driver kind %q", cfg.Kind)
}

// Echo performs no external action and reports back exactly what it was
// given. Useful for dry runs of a ledger.
type Echo struct {
	mu     sync.Mutex
	last   string
	logger *zap.SugaredLogger
}

// NewEcho creates an Echo driver
func NewEcho(log *zap.SugaredLogger) *Echo {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Echo{logger: log.Named("echo")}
}

// Dispatch remembers raw
func (e *Echo) Dispatch(ctx context.Context, raw string) error {
	e.mu.Lock()
	e.last = raw
	e.mu.Unlock()
	e.logger.Debugw("Dry run dispatch", logger.FieldContact, raw)
	return nil
}

// CaptureFeedback returns the last dispatched value
func (e *Echo) CaptureFeedback(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, nil
}
