// Package sym defines the glyphs callsheet prints next to commands, log lines
// and narration. They are stable across CLI help, console logs and JSON output.
package sym

// Command glyphs, one per top-level command.
const (
	Run     = "☎" // run: drive a campaign over the ledger
	Clean   = "⊘" // clean: split a contact table against the blacklist
	Check   = "⊙" // check: report blacklist matches without writing
	Status  = "▤" // status: ledger totals and next pending contact
	Mark    = "✓" // mark: mark a contact complete by hand
	History = "⊔" // history: browse the run journal
	Config  = "≡" // config: configuration and settings
)

// Narration glyphs used inside run output, not bound to a command.
const (
	Dispatch = "→" // contact handed to the action driver
	Verified = "✔" // feedback matched and ledger persisted
	Mismatch = "≠" // feedback differed from the dispatched value
	Failure  = "✗" // driver step failed
	Pause    = "⏸" // waiting on operator continuation
)

// SymbolToCommand maps glyph strings to their command equivalents.
var SymbolToCommand = map[string]string{
	Run:     "run",
	Clean:   "clean",
	Check:   "check",
	Status:  "status",
	Mark:    "mark",
	History: "history",
	Config:  "config",
}

// CommandToSymbol maps commands to their canonical glyph strings.
var CommandToSymbol = map[string]string{
	"run":     Run,
	"clean":   Clean,
	"check":   Check,
	"status":  Status,
	"mark":    Mark,
	"history": History,
	"config":  Config,
}

// CommandDescriptions provides the one-line help text for each command.
var CommandDescriptions = map[string]string{
	"run":     "Drive a contact campaign over the ledger",
	"clean":   "Remove blacklisted numbers from a contact table",
	"check":   "Report blacklisted numbers in a contact table",
	"status":  "Show ledger totals and the next pending contact",
	"mark":    "Mark a contact complete in the ledger",
	"history": "Show past campaign runs from the journal",
	"config":  "Manage callsheet configuration",
}

// Short returns "<glyph> <description>" for a command, for cobra's Short field.
func Short(command string) string {
	return CommandToSymbol[command] + " " + CommandDescriptions[command]
}
