package operator

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
)

// PromptContinuer asks on the terminal whether an automated run goes on
// after its test batch. Use it only when no KeyListener owns the terminal.
type PromptContinuer struct {
	confirm func(text string) (bool, error)
}

// NewPromptContinuer creates a PromptContinuer that defaults to "no"
func NewPromptContinuer() *PromptContinuer {
	return &PromptContinuer{
		confirm: func(text string) (bool, error) {
			return pterm.DefaultInteractiveConfirm.WithDefaultValue(false).Show(text)
		},
	}
}

// Continue implements campaign.Continuer
func (p *PromptContinuer) Continue(ctx context.Context, completed int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.confirm(fmt.Sprintf("Test batch of %d done. Check the results on the target, then continue with the rest?", completed))
}
