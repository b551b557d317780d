// Package display renders callsheet output for terminals and for JSON
// consumers.
package display

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/callsheet/errors"
)

// ShouldOutputJSON reports whether a command should print JSON: its own
// --json flag wins, then the root's persistent --json flag.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}
	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}
	return false
}

// OutputJSON prints v as JSON on stdout
func OutputJSON(v interface{}) error {
	return WriteJSON(os.Stdout, v)
}

// WriteJSON writes v as JSON followed by a newline
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

type crlfWriter struct {
	w io.Writer
}

// CRLF returns a writer that turns "\n" into "\r\n", for output printed
// while the terminal is in raw mode.
func CRLF(w io.Writer) io.Writer {
	return crlfWriter{w: w}
}

func (c crlfWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
