package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/callsheet/blacklist"
	"github.com/teranos/callsheet/config"
	"github.com/teranos/callsheet/display"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/tabular"
	"github.com/teranos/callsheet/logger"
	"github.com/teranos/callsheet/phone"
	"github.com/teranos/callsheet/sym"
)

type cleanFlags struct {
	blacklist string
	column    string
	outDir    string
}

// CleanReport is the outcome of clean or check
type CleanReport struct {
	Input        string   `json:"input"`
	Column       string   `json:"column"`
	ColumnIndex  int      `json:"column_index"`
	ColumnReason string   `json:"column_reason"`
	Rows         int      `json:"rows"`
	Kept         int      `json:"kept"`
	Removed      int      `json:"removed"`
	Blacklisted  int      `json:"blacklisted"`
	Matched      []string `json:"matched"`
	RemovedRows  []int    `json:"removed_rows"` // 1-based data rows
	CleanedPath  string   `json:"cleaned_path,omitempty"`
	RemovedPath  string   `json:"removed_path,omitempty"`
}

func (f *cleanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.blacklist, "blacklist", "", "Blacklist path, URL, sheet URL or sheet ID (default from config)")
	cmd.Flags().StringVar(&f.column, "column", "", "Phone column by header name or 1-based number (default: detect)")
}

func newCleanCmd() *cobra.Command {
	var f cleanFlags
	cmd := &cobra.Command{
		Use:   "clean <contacts.csv>",
		Short: sym.Short("clean"),
		Long: sym.Clean + ` clean - Remove blacklisted numbers from a contact table

Reads a CSV with a header row, finds the phone column, fetches the blacklist
and writes two files next to the input (or into --out):

  <name>_cleaned.csv   rows whose number is not blacklisted
  <name>_removed.csv   rows whose number is blacklisted

Both keep the header and the original row order. Numbers are compared on
their digits only, so "(555) 010-1111" matches "555.010.1111".

Examples:
  callsheet clean leads.csv --blacklist https://docs.google.com/spreadsheets/d/<id>/edit
  callsheet clean leads.csv --blacklist blacklist.csv --column Phone --out cleaned/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, args[0], f, true)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.outDir, "out", "", "Output folder (default: the input's folder)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var f cleanFlags
	cmd := &cobra.Command{
		Use:   "check <contacts.csv>",
		Short: sym.Short("check"),
		Long: sym.Check + ` check - Report blacklisted numbers in a contact table

Same matching as clean, but nothing is written.

Examples:
  callsheet check leads.csv
  callsheet check leads.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, args[0], f, false)
		},
	}
	f.register(cmd)
	return cmd
}

func runClean(cmd *cobra.Command, input string, f cleanFlags, write bool) error {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	if f.blacklist != "" {
		cfg.Blacklist.Source = f.blacklist
	}
	if cfg.Blacklist.Source == "" {
		return errors.WithHint(
			errors.NewInvalidRequestError("no blacklist source"),
			"pass --blacklist or set blacklist.source in callsheet.toml")
	}

	table, err := tabular.ReadFile(input, true)
	if err != nil {
		return err
	}

	col, err := pickColumn(table, f.column)
	if err != nil {
		return err
	}
	log := logger.Logger
	log.Infow("Phone column", logger.FieldColumn, col.Name, "index", col.Index, "reason", col.Reason)

	set, err := fetchBlacklist(cmd, cfg)
	if err != nil {
		return err
	}

	res := blacklist.MatchPrefix(table.Column(col.Index), set, cfg.Blacklist.PrefixDigits)
	kept, removed := blacklist.Split(table.Rows, res.ExcludedRowIndices)

	report := CleanReport{
		Input:        input,
		Column:       col.Name,
		ColumnIndex:  col.Index,
		ColumnReason: col.Reason,
		Rows:         len(table.Rows),
		Kept:         len(kept),
		Removed:      len(removed),
		Blacklisted:  set.Len(),
		Matched:      make([]string, 0, res.Matched.Len()),
		RemovedRows:  make([]int, 0, len(res.ExcludedRowIndices)),
	}
	for _, k := range res.Matched.Keys() {
		report.Matched = append(report.Matched, k.String())
	}
	for _, i := range res.ExcludedRowIndices {
		report.RemovedRows = append(report.RemovedRows, i+1)
	}

	if write {
		outDir := f.outDir
		if outDir == "" {
			outDir = filepath.Dir(input)
		}
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		report.CleanedPath = filepath.Join(outDir, base+"_cleaned.csv")
		report.RemovedPath = filepath.Join(outDir, base+"_removed.csv")

		if err := tabular.WriteFile(report.CleanedPath, table.Header, kept); err != nil {
			return err
		}
		if err := tabular.WriteFile(report.RemovedPath, table.Header, removed); err != nil {
			return err
		}
		log.Infow("Wrote cleaned table", logger.FieldFile, report.CleanedPath, logger.FieldRows, len(kept))
	}

	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(cmd.OutOrStdout(), report)
	}
	return renderCleanReport(cmd.OutOrStdout(), report)
}

// pickColumn resolves --column (a header name or 1-based number) or detects it
func pickColumn(t *tabular.Table, flag string) (phone.Column, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return phone.DetectColumn(t.Header, t.Rows), nil
	}
	for i, name := range t.Header {
		if strings.EqualFold(strings.TrimSpace(name), flag) {
			return phone.Column{Index: i, Name: name, Reason: "flag"}, nil
		}
	}
	if n, err := strconv.Atoi(flag); err == nil && n >= 1 && n <= len(t.Header) {
		return phone.Column{Index: n - 1, Name: t.Header[n-1], Reason: "flag"}, nil
	}
	return phone.Column{}, errors.WithHintf(
		errors.NewInvalidRequestError("no column %q", flag),
		"columns are: %s", strings.Join(t.Header, ", "))
}

func fetchBlacklist(cmd *cobra.Command, cfg *config.Config) (blacklist.Set, error) {
	src := blacklist.NewSource(cfg.Blacklist.Source, blacklist.SourceOptions{
		Sheet:        cfg.Blacklist.Sheet,
		Column:       cfg.Blacklist.Column,
		Timeout:      cfg.Blacklist.Timeout,
		AllowPrivate: cfg.Blacklist.AllowPrivate,
	}, logger.Named("blacklist"))

	var spinner *pterm.SpinnerPrinter
	if !display.ShouldOutputJSON(cmd) {
		spinner, _ = pterm.DefaultSpinner.WithWriter(cmd.ErrOrStderr()).Start("Fetching blacklist")
	}
	set, err := src.Fetch(cmd.Context())
	if spinner != nil {
		if err != nil {
			spinner.Fail("Blacklist unavailable")
		} else {
			spinner.Success(fmt.Sprintf("Blacklist: %d numbers", set.Len()))
		}
	}
	return set, err
}

func renderCleanReport(w io.Writer, r CleanReport) error {
	pterm.Fprintln(w, fmt.Sprintf("Phone column: %s (%s)", r.Column, r.ColumnReason))
	pterm.Fprintln(w, fmt.Sprintf("Rows: %d | Kept: %d | Removed: %d", r.Rows, r.Kept, r.Removed))

	if len(r.Matched) > 0 {
		pterm.Fprintln(w, "Blacklisted numbers found:")
		for _, k := range r.Matched {
			pterm.Fprintln(w, "  "+k)
		}
	}
	if r.CleanedPath != "" {
		pterm.Success.WithWriter(w).Printfln("Wrote %s and %s", r.CleanedPath, r.RemovedPath)
	} else if r.Removed == 0 {
		pterm.Success.WithWriter(w).Println("No blacklisted numbers")
	}
	return nil
}
