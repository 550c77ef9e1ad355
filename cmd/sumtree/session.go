package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesainslie/sumtree/pkg/sumtree/cache"
	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/journal"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/prompt"
	"github.com/jamesainslie/sumtree/pkg/sumtree/scanner"
	"github.com/jamesainslie/sumtree/pkg/sumtree/tuner"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger = logging.Get("cli")

var _ engine.Cache = (*cache.Cache)(nil)

// maxJournalFailures caps the failing paths copied into a journal record;
// the error log next to the manifest always has the full list.
const maxJournalFailures = 1000

// session carries what one hash, verify or import run needs.
type session struct {
	cfg       *config.Config
	ctx       context.Context
	formatter output.Formatter
	prompter  *prompt.Prompter
	lister    *scanner.Scanner
	bar       *progressbar.ProgressBar
	closers   []func()
}

// newSession loads the config, resolves the formatter and installs the
// interrupt handler. Call close when done.
func newSession(cmd *cobra.Command) (*session, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	formatter, err := buildFormatter()
	if err != nil {
		return nil, nil, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	s := &session{cfg: cfg, ctx: ctx, formatter: formatter}
	if interactive() {
		s.prompter = prompt.New(os.Stdin, os.Stderr)
	}
	s.closers = append(s.closers, stop)

	return s, s.close, nil
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// interactive reports whether prompts may be shown: not disabled and both
// stdin and stderr are terminals.
func interactive() bool {
	if viper.GetBool("no_interactive") {
		return false
	}
	return prompt.IsTerminal(os.Stdin.Fd()) && prompt.IsTerminal(os.Stderr.Fd())
}

func showProgress() bool {
	if getQuiet() || viper.GetBool("no_progress") {
		return false
	}
	return prompt.IsTerminal(os.Stderr.Fd())
}

// newEngine builds an engine over the configured scanner. The digest cache
// is opened only when useCache is set; failing to open it is a warning.
func (s *session) newEngine(useCache bool, description string) *engine.Engine {
	plan := workerPlan(s.cfg.Hash.Workers)
	s.lister = scanner.New(scanner.Options{
		Exclude:        splitPatterns(viper.GetStringSlice("exclude")),
		FollowSymlinks: s.cfg.Hash.FollowSymlinks || followSymlinks,
		Workers:        plan.WalkWorkers,
	})

	opts := engine.Options{
		Lister:       s.lister,
		ErrorLogName: s.cfg.Verify.ErrorLogName,
	}

	if useCache {
		c, err := cache.Open(s.cfg.Cache.Path)
		if err != nil {
			logger.Warn("digest cache unavailable, hashing everything", "path", s.cfg.Cache.Path, "error", err)
		} else {
			opts.Cache = c
			s.closers = append(s.closers, func() {
				if err := c.Close(); err != nil {
					logger.Warn("closing digest cache", "error", err)
				}
			})
		}
	}

	if showProgress() {
		opts.OnProgress = s.progress(description)
	}
	return engine.New(opts)
}

// workerPlan sizes the directory walk for this machine; a positive
// override from the config wins.
func workerPlan(override int) tuner.Plan {
	resources, err := tuner.Detect()
	if err != nil {
		logger.Debug("resource detection incomplete", "error", err)
	}
	plan := tuner.CalculateWithOverrides(resources, override)
	logger.Debug("worker plan", "walk", plan.WalkWorkers, "cores", resources.CPUCores)
	return plan
}

// progress returns a callback drawing a bar on stderr. The bar is created
// on the first update, once the total is known, and console logging is
// held back while it is on screen.
func (s *session) progress(description string) engine.ProgressFunc {
	return func(p types.Progress) {
		if s.bar == nil {
			logging.Hold()
			s.bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = s.bar.Set(p.Done)
	}
}

// finishProgress removes the bar and replays held log lines.
func (s *session) finishProgress() {
	if s.bar != nil {
		_ = s.bar.Finish()
		s.bar = nil
	}
	logging.Release()
}

// walkWarnings turns skipped walk entries into report warnings.
func (s *session) walkWarnings() []string {
	if s.lister == nil {
		return nil
	}
	errs := s.lister.Errors()
	if len(errs) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%d unreadable entries were skipped (see the log for paths)", len(errs))}
}

// render writes the report to stdout unless --quiet is set.
func (s *session) render(r *output.Report) error {
	if getQuiet() {
		return nil
	}
	var buf bytes.Buffer
	if err := s.formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err := os.Stdout.Write(buf.Bytes())
	return err
}

// record appends rec to the journal when it is enabled. Journal failures
// never fail the operation.
func (s *session) record(rec *journal.Record) {
	if !s.cfg.Journal.Enabled {
		return
	}
	j, err := journal.New(s.cfg.Journal.Path)
	if err == nil {
		_, err = j.Log(rec)
	}
	if err != nil {
		logger.Warn("journal record not written", "operation", rec.Operation, "error", err)
	}
}

// recordError journals an operation that stopped with err.
func (s *session) recordError(op journal.Operation, target string, err error) {
	s.record(&journal.Record{
		Operation: op,
		Status:    journal.StatusError,
		Target:    target,
		Error:     err.Error(),
	})
}

// failureRecords converts verification failures for the journal.
func failureRecords(results []types.VerificationResult) []journal.FailureRecord {
	var out []journal.FailureRecord
	for _, r := range results {
		if len(out) == maxJournalFailures {
			break
		}
		out = append(out, journal.FailureRecord{Path: r.Path, Outcome: string(r.Outcome)})
	}
	return out
}
