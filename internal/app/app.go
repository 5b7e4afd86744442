package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"vhevents/internal/config"
	"vhevents/internal/export"
	"vhevents/internal/ics"
	appLog "vhevents/internal/log"
	"vhevents/internal/metrics"
	"vhevents/internal/model"
	"vhevents/internal/rules"
	"vhevents/internal/schedule"
	"vhevents/internal/sheet"
)

// Options are the per-invocation choices layered over Config.
type Options struct {
	// ReadFile replaces the configured feeds with one local ICS file.
	ReadFile string

	// Year and Month select the window; zero means the current month.
	Year  int
	Month int

	NextMonth bool
	All       bool

	// Template, XLSXOutput and JSONOutput override their Config values
	// when non-empty.
	Template   string
	XLSXOutput string
	JSONOutput string
}

// App runs the feed → tables pipeline for one Config.
type App struct {
	cfg     *config.Config
	loc     *time.Location
	fetcher *ics.Fetcher
	now     func() time.Time
}

func New(cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:     cfg,
		loc:     loc,
		fetcher: ics.NewFetcher(cfg.CacheDir),
		now:     time.Now,
	}, nil
}

// Month returns the year and month the options select, in the configured
// zone.
func (a *App) Month(opts Options) (int, time.Month) {
	now := a.now().In(a.loc)
	year, month := now.Year(), now.Month()
	if opts.Year != 0 {
		year = opts.Year
	}
	if opts.Month != 0 {
		month = time.Month(opts.Month)
	}
	if opts.NextMonth {
		first := time.Date(year, month+1, 1, 0, 0, 0, 0, a.loc)
		year, month = first.Year(), first.Month()
	}
	return year, month
}

// Window returns the selection window for opts.
func (a *App) Window(opts Options) schedule.Window {
	if opts.All {
		return schedule.AllWindow()
	}
	year, month := a.Month(opts)
	return schedule.MonthWindow(year, month, a.loc)
}

// Sources lists the feeds to read. ReadFile wins over the configured feeds.
func (a *App) Sources(opts Options) ([]ics.Source, error) {
	if opts.ReadFile != "" {
		return []ics.Source{{ID: "file", File: opts.ReadFile}}, nil
	}
	if len(a.cfg.Feeds) == 0 {
		return nil, config.ErrNoFeeds
	}
	out := make([]ics.Source, 0, len(a.cfg.Feeds))
	for _, f := range a.cfg.Feeds {
		out = append(out, ics.Source{ID: f.ID, URL: f.URL, File: f.File})
	}
	return out, nil
}

func (a *App) templatePath(opts Options) string {
	if opts.Template != "" {
		return opts.Template
	}
	return a.cfg.Template
}

// RuleSet compiles the configured rules. A config without rules falls back
// to the template's Config sheet; with neither, every event is one-off.
func (a *App) RuleSet(opts Options) (*rules.Set, error) {
	if a.cfg.HasRules() {
		return rules.Compile(a.cfg.AllRules())
	}

	path := a.templatePath(opts)
	if path == "" {
		appLog.Warn("no classification rules configured")
		return rules.Compile(nil)
	}

	t, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	rs, err := t.Rules()
	if errors.Is(err, sheet.ErrNoConfigSheet) {
		appLog.Warn("template has no Config sheet; no classification rules", "template", path)
		return rules.Compile(nil)
	}
	if err != nil {
		return nil, err
	}
	appLog.Info("rules read from template", "template", path, "count", len(rs))
	return rules.Compile(rs)
}

// Run loads every feed and builds both tables. Nothing is written.
func (a *App) Run(ctx context.Context, opts Options) (*schedule.Result, error) {
	runID := uuid.NewString()
	started := time.Now()
	appLog.Debug("run started", "run_id", runID)

	res, err := a.run(ctx, opts)
	if err != nil {
		metrics.RunFailed()
		appLog.Error("run aborted", err, "run_id", runID)
		return nil, err
	}
	metrics.RunSucceeded(len(res.Events), len(res.Weekly), len(res.Other))
	appLog.Info("run finished", "run_id", runID, "elapsed", time.Since(started).String())
	return res, nil
}

func (a *App) run(ctx context.Context, opts Options) (*schedule.Result, error) {
	sources, err := a.Sources(opts)
	if err != nil {
		return nil, err
	}
	set, err := a.RuleSet(opts)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	raws, err := a.fetcher.Load(ctx, sources)
	if err != nil {
		return nil, err
	}
	return schedule.Run(raws, schedule.Options{
		Rules:  set,
		Zones:  schedule.NewZones(a.loc),
		Window: a.Window(opts),
	})
}

// WriteOutputs writes the JSON dump and the spreadsheet when their paths
// are set. "%" in a path becomes the selected YYYY-MM. Every target is
// checked before anything is written, so a bad target leaves no partial
// output set behind.
func (a *App) WriteOutputs(res *schedule.Result, opts Options) error {
	year, month := a.Month(opts)

	jsonPath := firstNonEmpty(opts.JSONOutput, a.cfg.JSONOutput)
	if jsonPath != "" {
		jsonPath = ExpandMonth(jsonPath, year, month)
	}
	xlsxPath := firstNonEmpty(opts.XLSXOutput, a.cfg.XLSXOutput)
	tmpl := a.templatePath(opts)
	if xlsxPath != "" {
		xlsxPath = ExpandMonth(xlsxPath, year, month)
		if tmpl == "" {
			return errors.New("xlsx output needs a template")
		}
		if _, err := os.Stat(tmpl); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", sheet.ErrTemplateNotFound, tmpl)
			}
			return err
		}
	}

	if jsonPath != "" {
		if err := export.WriteWeeklyFile(jsonPath, res.WeeklyTable); err != nil {
			return fmt.Errorf("write json %s: %w", jsonPath, err)
		}
		appLog.Info("weekly JSON written", "path", jsonPath)
	}
	if xlsxPath != "" {
		if err := sheet.Write(tmpl, xlsxPath, res.WeeklyTable, res.DateTable); err != nil {
			return fmt.Errorf("write xlsx %s: %w", xlsxPath, err)
		}
	}
	return nil
}

// ExpandMonth replaces every "%" in path with YYYY-MM.
func ExpandMonth(path string, year int, month time.Month) string {
	return strings.ReplaceAll(path, "%", fmt.Sprintf("%04d-%02d", year, int(month)))
}

// PrintSummary writes the counts line and the per-weekday listing of weekly
// events. printAll adds every selected event first.
func PrintSummary(w io.Writer, res *schedule.Result, printAll bool) {
	if printAll {
		fmt.Fprintln(w, "Events in window")
		for _, ev := range res.Events {
			fmt.Fprintf(w, "%s %s %s\n", ev.Label, ev.Room, ev.ShortTimes())
		}
	}

	fmt.Fprintf(w, "**** Number of events: %d. Weekly: %d. Other Events: %d\n",
		len(res.Events), len(res.Weekly), len(res.Other))

	byDay := make(map[time.Weekday][]model.Event)
	for _, ev := range res.Weekly {
		byDay[ev.Day] = append(byDay[ev.Day], ev)
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		fmt.Fprintf(w, "%s:\n", model.DayName(d))
		for _, ev := range byDay[d] {
			fmt.Fprintf(w, "    %s\n", ev.LabelAndTimes())
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
