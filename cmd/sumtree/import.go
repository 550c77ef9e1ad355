package main

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/journal"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest>",
	Short: "Convert a manifest written by another tool in place",
	Long: `Rewrite a foreign .md5 or .sha256 listing (upper-case digests, "*path"
entries, backslash separators, CRLF line endings) into the sumtree layout.
The first three lines are the exporter's header and are always discarded,
whatever they contain. Lines without a digest are skipped and reported.
The original is kept byte-for-byte as <manifest>.backup.

Import refuses to run when the backup already exists.

Examples:
  sumtree import export.sha256
  sumtree import --yes -o json list.md5`,
	Args: exactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "convert without asking")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	s, done, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer done()

	confirmed := importYes
	if !confirmed && s.prompter != nil {
		confirmed, err = s.prompter.Confirm(fmt.Sprintf("Convert %s in place (original kept as %s.backup)?", path, path), true)
		if err != nil {
			return err
		}
	}

	e := s.newEngine(false, "importing")
	res, err := e.ImportForeignManifest(s.ctx, engine.ImportRequest{Path: path, Confirmed: confirmed})
	s.finishProgress()
	if err != nil {
		if !errors.Is(err, types.ErrUserDeclined) {
			s.recordError(journal.OpImport, path, err)
		}
		return err
	}

	for _, sk := range res.Skipped {
		logger.Debug("skipped foreign line", "line", sk.Line, "reason", sk.Reason)
	}

	s.record(&journal.Record{
		Operation: journal.OpImport,
		Status:    journal.StatusOK,
		Target:    path,
		Manifest:  res.Path,
		Algorithm: res.Algorithm.String(),
		Summary: journal.Summary{
			Entries: res.Entries,
			Skipped: len(res.Skipped),
		},
	})

	return s.render(output.FromImport(path, res))
}
