package blacklist

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/httpclient"
	"github.com/teranos/callsheet/internal/tabular"
	"github.com/teranos/callsheet/logger"
)

const (
	defaultSheetBase = "https://docs.google.com/spreadsheets/d/"
	maxDownloadBytes = 50 << 20
)

var (
	bareSheetID   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	sheetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/spreadsheets/d/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`id=([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`/d/([A-Za-z0-9_-]+)/`),
	}
)

// SourceOptions configures a Source
type SourceOptions struct {
	Sheet        string // gid of the sheet to export, empty for the first sheet
	Column       int    // zero-based column holding the numbers
	Timeout      time.Duration
	AllowPrivate bool
}

// Source fetches a blacklist from a local file, a URL, a Google Sheets
// link, or a bare sheet ID.
type Source struct {
	ref    string
	opts   SourceOptions
	logger *zap.SugaredLogger

	sheetBase string
}

// NewSource creates a Source for ref
func NewSource(ref string, opts SourceOptions, log *zap.SugaredLogger) *Source {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Source{
		ref:       strings.TrimSpace(ref),
		opts:      opts,
		logger:    log,
		sheetBase: defaultSheetBase,
	}
}

// ExtractSheetID returns the Google Sheets ID in ref, or "" if there is none.
// A bare ID must be longer than 20 characters.
func ExtractSheetID(ref string) string {
	ref = strings.TrimSpace(ref)
	if bareSheetID.MatchString(ref) && len(ref) > 20 {
		return ref
	}
	for _, p := range sheetPatterns {
		if m := p.FindStringSubmatch(ref); m != nil {
			return m[1]
		}
	}
	return ""
}

// Candidates lists the locations Fetch tries, in order
func (s *Source) Candidates() ([]string, error) {
	if s.ref == "" {
		return nil, errors.WithHint(
			errors.SourceUnavailable(errors.New("no blacklist source configured"), "cannot fetch blacklist"),
			"set blacklist.source in callsheet.toml or pass --blacklist",
		)
	}

	if _, err := os.Stat(s.ref); err == nil {
		abs, err := filepath.Abs(s.ref)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve %s", s.ref)
		}
		return []string{abs}, nil
	}

	u, err := url.Parse(s.ref)
	isURL := err == nil && u.Scheme != "" && u.Host != ""

	if !isURL || strings.HasSuffix(u.Hostname(), "docs.google.com") {
		if id := ExtractSheetID(s.ref); id != "" {
			return s.sheetURLs(id), nil
		}
	}
	if isURL || strings.HasPrefix(s.ref, "file://") {
		return []string{s.ref}, nil
	}

	return nil, errors.WithHint(
		errors.SourceUnavailable(errors.Newf("cannot interpret %q", s.ref), "cannot fetch blacklist"),
		"use a file path, an http(s) URL, a Google Sheets link, or a sheet ID",
	)
}

// sheetURLs are the export endpoints tried for a sheet, most reliable first
func (s *Source) sheetURLs(id string) []string {
	base := s.sheetBase + id
	first := base + "/export?format=csv"
	if s.opts.Sheet != "" {
		first += "&gid=" + url.QueryEscape(s.opts.Sheet)
	}
	return []string{
		first,
		base + "/gviz/tq?tqx=out:csv",
		base + "/export?format=csv&gid=0",
	}
}

// Fetch downloads the blacklist and returns its normalized keys. Candidates
// are tried in order; when all fail the error is ErrSourceUnavailable.
func (s *Source) Fetch(ctx context.Context) (Set, error) {
	candidates, err := s.Candidates()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "callsheet-blacklist-*")
	if err != nil {
		return nil, errors.SourceUnavailable(err, "failed to create download directory")
	}
	defer os.RemoveAll(dir)

	var lastErr error
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		values, err := s.fetchOne(ctx, candidate, filepath.Join(dir, "blacklist.csv"))
		if err != nil {
			s.logger.Debugw("Blacklist candidate failed",
				logger.FieldSource, candidate,
				logger.FieldAttempt, i+1,
				logger.FieldError, err)
			lastErr = err
			continue
		}

		set := NewSet(values)
		s.logger.Infow("Blacklist fetched",
			logger.FieldSource, candidate,
			logger.FieldRows, len(values),
			logger.FieldTotal, set.Len(),
			logger.FieldDurationMS, time.Since(start).Milliseconds())
		return set, nil
	}

	return nil, errors.WithHint(
		errors.SourceUnavailable(lastErr, "could not fetch blacklist from "+s.ref),
		"check the link is shared as 'anyone with the link can view', or download it and pass the file path",
	)
}

func (s *Source) fetchOne(ctx context.Context, src, dst string) ([]string, error) {
	os.Remove(dst)

	httpGetter := &getter.HttpGetter{
		Client: httpclient.New(httpclient.Options{
			Timeout:      s.opts.Timeout,
			AllowPrivate: s.opts.AllowPrivate,
		}),
		ReadTimeout:           s.opts.Timeout,
		MaxBytes:              maxDownloadBytes,
		DoNotCheckHeadFirst:   true,
		XTerraformGetDisabled: true,
	}

	pwd, _ := os.Getwd()
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
		Getters: map[string]getter.Getter{
			"file":  &getter.FileGetter{Copy: true},
			"http":  httpGetter,
			"https": httpGetter,
		},
	}
	if err := client.Get(); err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", src)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read download")
	}
	// Private sheets answer with a sign-in page instead of CSV
	if trimmed := bytes.TrimSpace(data); bytes.HasPrefix(trimmed, []byte("<")) {
		return nil, errors.Newf("%s returned HTML, not CSV", src)
	}

	table, err := tabular.Read(bytes.NewReader(data), false)
	if err != nil {
		return nil, err
	}

	var values []string
	present := false
	for _, row := range table.Rows {
		if s.opts.Column < len(row) {
			present = true
			values = append(values, row[s.opts.Column])
		}
	}
	if !present && len(table.Rows) > 0 {
		return nil, errors.Newf("%s has no column %d", src, s.opts.Column)
	}
	return values, nil
}
