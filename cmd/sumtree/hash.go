package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/journal"
	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/prompt"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var hashCmd = &cobra.Command{
	Use:   "hash <path>",
	Short: "Write a checksum manifest for a file or directory tree",
	Long: `Hash every regular file under <path> and write a manifest.

For a directory the manifest is <path>/<dirname>.<alg>; for a single file it
is <file>.<alg> next to it. An existing manifest is never touched unless
--append or --overwrite is given (or chosen at the prompt).

Examples:
  sumtree hash ~/Photos                     # create ~/Photos/Photos.md5
  sumtree hash -a sha256 backup.tar         # create backup.tar.sha256
  sumtree hash --append ~/Photos            # add entries for new files
  sumtree hash --overwrite --yes ~/Photos   # re-hash and replace
  sumtree hash -e '**/.DS_Store' ~/Photos   # skip matching files`,
	Args: exactArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	flags := hashCmd.Flags()
	flags.StringVarP(&hashAlgorithm, "algorithm", "a", "", "md5 or sha256 (default from config)")
	flags.BoolVar(&hashAppend, "append", false, "add entries for files missing from an existing manifest")
	flags.BoolVar(&hashOverwrite, "overwrite", false, "re-hash everything and replace an existing manifest")
	flags.BoolVarP(&hashYes, "yes", "y", false, "confirm --overwrite without asking")
	flags.StringVar(&hashMatch, "match", "", "how --append recognises listed files: basename or path")
	flags.StringSliceVarP(&hashExclude, "exclude", "e", nil, "glob patterns to skip (repeatable, comma-separated)")
	flags.BoolVar(&hashCache, "cache", false, "reuse digests of unchanged files from the digest cache")
	flags.BoolVar(&followSymlinks, "follow-symlinks", false, "hash files reached through symbolic links")

	bindFlag("hash.match", flags.Lookup("match"))
	bindFlag("exclude", flags.Lookup("exclude"))
	bindFlag("cache.enabled", flags.Lookup("cache"))
}

func runHash(cmd *cobra.Command, args []string) error {
	target := args[0]

	mode, explicit, err := modeFromFlags(hashAppend, hashOverwrite)
	if err != nil {
		return err
	}
	match, err := parseMatchFlag(viper.GetString("hash.match"))
	if err != nil {
		return err
	}

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

	alg, err := s.chooseAlgorithm(cmd, hashAlgorithm, "Hash algorithm for the new manifest")
	if err != nil {
		return err
	}

	mpath := manifest.Path(target, alg, info.IsDir())
	_, statErr := os.Stat(mpath)
	manifestExists := statErr == nil

	if manifestExists && !explicit && s.prompter != nil {
		if mode, err = s.chooseMode(mpath); err != nil {
			return err
		}
	}

	confirmed := hashYes
	if mode == types.Overwrite && manifestExists && !confirmed && s.prompter != nil {
		confirmed, err = s.prompter.Confirm(fmt.Sprintf("Replace %s?", mpath), false)
		if err != nil {
			return err
		}
	}

	printVerbose("hash %s: algorithm=%s mode=%s match=%s", target, alg, mode, match)

	e := s.newEngine(viper.GetBool("cache.enabled"), "hashing")
	res, err := e.GenerateManifest(s.ctx, engine.GenerateRequest{
		Root:      target,
		Algorithm: alg,
		Mode:      mode,
		Confirmed: confirmed,
		Match:     match,
	})
	s.finishProgress()
	if err != nil {
		if !errors.Is(err, types.ErrUserDeclined) {
			s.recordError(journal.OpHash, target, err)
		}
		return err
	}

	for _, we := range s.lister.Errors() {
		logger.Warn("skipped during walk", "path", we.Path, "error", we.Err)
	}

	report := output.FromGenerate(target, res)
	report.Warnings = append(report.Warnings, s.walkWarnings()...)

	s.record(&journal.Record{
		Operation: journal.OpHash,
		Status:    journal.StatusOK,
		Target:    target,
		Manifest:  res.Manifest,
		Algorithm: res.Algorithm.String(),
		Mode:      res.Mode.String(),
		Summary: journal.Summary{
			Entries:    len(res.Entries),
			Added:      len(res.Added),
			Bytes:      res.Bytes,
			DurationMs: res.Duration.Milliseconds(),
		},
	})

	return s.render(report)
}

// chooseAlgorithm resolves the algorithm from the flag, a prompt with the
// configured default highlighted, or the config alone.
func (s *session) chooseAlgorithm(cmd *cobra.Command, flagValue, title string) (types.Algorithm, error) {
	if cmd.Flags().Changed("algorithm") {
		return parseAlgorithmFlag(flagValue)
	}

	def, err := types.ParseAlgorithm(s.cfg.Algorithm)
	if err != nil {
		return types.AlgorithmUnknown, fmt.Errorf("config: algorithm: %w", err)
	}
	if s.prompter == nil {
		return def, nil
	}

	options := make([]prompt.Option, 0, len(types.Algorithms))
	selected := 0
	for i, a := range types.Algorithms {
		if a == def {
			selected = i
		}
		options = append(options, prompt.Option{Label: a.String(), Value: a.String(), Help: a.Ext()})
	}
	value, err := s.prompter.Select(title, options, selected)
	if err != nil {
		return types.AlgorithmUnknown, err
	}
	return types.ParseAlgorithm(value)
}

// chooseMode asks what to do with an existing manifest.
func (s *session) chooseMode(mpath string) (types.Mode, error) {
	const cancel = "cancel"
	value, err := s.prompter.Select(fmt.Sprintf("%s already exists", mpath), []prompt.Option{
		{Label: "Append", Value: types.AppendMissing.String(), Help: describeMode(types.AppendMissing)},
		{Label: "Overwrite", Value: types.Overwrite.String(), Help: describeMode(types.Overwrite)},
		{Label: "Cancel", Value: cancel, Help: "leave it alone"},
	}, 0)
	if err != nil {
		return types.CreateNew, err
	}

	switch value {
	case types.AppendMissing.String():
		return types.AppendMissing, nil
	case types.Overwrite.String():
		return types.Overwrite, nil
	default:
		return types.CreateNew, fmt.Errorf("%w: keep %s", types.ErrUserDeclined, mpath)
	}
}
