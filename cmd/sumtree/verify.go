package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/journal"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <manifest|directory>",
	Short: "Re-hash files and compare them with a manifest",
	Long: `Verify every entry of a manifest against the files on disk.

Given a manifest file the algorithm comes from its extension. Given a
directory the manifest is <dir>/<dirname>.<alg>, with the algorithm taken
from --algorithm, a prompt, or the config default.

A failed verification writes the failing paths to an error log next to the
manifest and exits with status 1. The manifest itself is never modified.

Examples:
  sumtree verify ~/Photos/Photos.md5
  sumtree verify -a sha256 ~/Photos
  sumtree verify -o json backup.tar.sha256`,
	Args: exactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyAlgorithm, "algorithm", "a", "", "md5 or sha256 when verifying a directory")
}

func runVerify(cmd *cobra.Command, args []string) error {
	target := args[0]

	s, done, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer done()

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", types.ErrNotFound, target)
		}
		return err
	}

	var alg types.Algorithm
	if info.IsDir() {
		if alg, err = s.chooseAlgorithm(cmd, verifyAlgorithm, "Algorithm of the manifest to verify"); err != nil {
			return err
		}
	} else if cmd.Flags().Changed("algorithm") {
		logger.Debug("ignoring --algorithm for a manifest file", "target", target)
	}

	e := s.newEngine(false, "verifying")
	res, err := e.Verify(s.ctx, engine.VerifyRequest{Target: target, Algorithm: alg})
	s.finishProgress()
	if res == nil {
		s.recordError(journal.OpVerify, target, err)
		return err
	}

	// The comparison finished even if the error log could not be written;
	// show it before reporting that failure.
	report := output.FromVerify(target, res)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("error log not written: %v", err))
	}

	status := journal.StatusOK
	if !res.Passed {
		status = journal.StatusFailed
	}
	s.record(&journal.Record{
		Operation: journal.OpVerify,
		Status:    status,
		Target:    target,
		Manifest:  res.Manifest,
		Algorithm: res.Algorithm.String(),
		Summary: journal.Summary{
			Entries:    len(res.Results),
			OK:         res.OK,
			Mismatch:   res.Mismatch,
			Missing:    res.Missing,
			DurationMs: res.Duration.Milliseconds(),
		},
		Failures: failureRecords(res.Failures()),
		ErrorLog: res.ErrorLog,
	})

	if rerr := s.render(report); rerr != nil {
		return rerr
	}
	if err != nil {
		return err
	}
	if !res.Passed {
		if getQuiet() {
			fmt.Fprintf(os.Stderr, "verification failed: %d mismatched, %d missing\n", res.Mismatch, res.Missing)
		}
		return errVerificationFailed
	}
	return nil
}
