package main

import (
	"fmt"
	"os"

	"github.com/teranos/callsheet/cmd/callsheet/commands"
	"github.com/teranos/callsheet/errors"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
