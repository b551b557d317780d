package display

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/teranos/callsheet/campaign"
	"github.com/teranos/callsheet/internal/util"
	"github.com/teranos/callsheet/ledger"
)

// MarshalJSON marshals with indentation for human-readable output
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// EventLine is one line of JSON run narration
type EventLine struct {
	Type       string           `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	RunID      string           `json:"run_id"`
	State      string           `json:"state"`
	Mode       string           `json:"mode"`
	Ledger     string           `json:"ledger,omitempty"`
	Index      *int             `json:"index,omitempty"`
	Contact    string           `json:"contact,omitempty"`
	Expected   string           `json:"expected,omitempty"`
	Observed   *string          `json:"observed,omitempty"`
	Attempt    int              `json:"attempt,omitempty"`
	CooldownMS int64            `json:"cooldown_ms,omitempty"`
	Error      string           `json:"error,omitempty"`
	Summary    *ledger.Summary  `json:"summary,omitempty"`
	Result     *campaign.Result `json:"result,omitempty"`
}

// NewEventLine flattens a campaign event for JSON output
func NewEventLine(e campaign.Event) EventLine {
	line := EventLine{
		Type:       string(e.Kind),
		Timestamp:  e.At,
		RunID:      e.RunID,
		State:      e.State.String(),
		Mode:       string(e.Mode),
		Ledger:     e.Ledger,
		Index:      util.PtrIf(e.Index, e.Index >= 0),
		Contact:    e.Contact,
		Expected:   e.Expected,
		Observed:   util.PtrIf(e.Observed, e.Kind == campaign.EventMismatch), // an empty clipboard is still an observation
		Attempt:    e.Attempt,
		CooldownMS: e.Cooldown.Milliseconds(),
		Summary:    util.PtrIf(e.Summary, e.Kind == campaign.EventRunStarted),
		Result:     e.Result,
	}
	if e.Err != nil {
		line.Error = e.Err.Error()
	}
	return line
}

// JSONObserver writes one JSON object per run event
type JSONObserver struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONObserver creates a JSONObserver writing to w
func NewJSONObserver(w io.Writer) *JSONObserver {
	return &JSONObserver{encoder: json.NewEncoder(w)}
}

// Observe implements campaign.Observer
func (o *JSONObserver) Observe(e campaign.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.encoder.Encode(NewEventLine(e))
}
