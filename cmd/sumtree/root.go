package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "sumtree <command> <path>",
		Short: "Create and verify checksum manifests for files and directory trees",
		Long: `Sumtree writes a checksum manifest (<hash>  <path> per line) next to a
file or inside a directory, verifies files against it later, and converts
manifests written by other tools into the same layout.

Examples:
  sumtree hash ~/Photos                 # write ~/Photos/Photos.md5
  sumtree hash -a sha256 --append .     # add entries for new files only
  sumtree verify ~/Photos/Photos.md5    # re-hash and compare
  sumtree import export.sha256 --yes    # convert a foreign listing in place
  sumtree history                       # view recent runs`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unknown command %q", args[0])
			}
			return usageErrorf("a command is required")
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/sumtree/config.yaml)")
	flags.StringP("output", "o", "", "report format (pretty, plain, json, jsonl, yaml, template, tsv, csv, markdown, paths, null)")
	flags.String("template", "", "Go template for -o template")
	flags.BoolP("quiet", "q", false, "print nothing but errors")
	flags.BoolP("verbose", "v", false, "debug output on stderr")
	flags.BoolP("no-interactive", "n", false, "never prompt; use flags and config only")
	flags.Bool("no-progress", false, "hide the progress bar")

	bindFlag("output", flags.Lookup("output"))
	bindFlag("template", flags.Lookup("template"))
	bindFlag("quiet", flags.Lookup("quiet"))
	bindFlag("verbose", flags.Lookup("verbose"))
	bindFlag("no_interactive", flags.Lookup("no-interactive"))
	bindFlag("no_progress", flags.Lookup("no-progress"))

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
}

// initConfig prepares the global viper instance; the file itself is read
// in initializeLogging so that a broken file is reported as an error.
func initConfig() {
	config.Setup(viper.GetViper(), cfgFile)
	bindFlags()
	configured = true
}

// boundFlags maps config keys to the flags that override them. The init
// functions that define the flags fill it; bindFlags re-applies it after
// the global viper has been reset.
var boundFlags = map[string]*pflag.Flag{}

// bindFlag lets a flag override a config key. Only flags that mean the same
// thing everywhere are bound; --algorithm is read per command.
func bindFlag(key string, f *pflag.Flag) {
	boundFlags[key] = f
	_ = viper.BindPFlag(key, f)
}

func bindFlags() {
	for key, f := range boundFlags {
		_ = viper.BindPFlag(key, f)
	}
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()

	cmd, err := rootCmd.ExecuteContextC(context.Background())
	if err != nil {
		var ee *exitError
		if errors.As(err, &ee) && ee.code == exitUsage {
			if cmd == nil {
				cmd = rootCmd
			}
			printError("%v", ee.err)
			fmt.Fprint(os.Stderr, cmd.UsageString())
			ee.silent = true
		}
	}
	return err
}

// exactArgs wraps cobra.ExactArgs so arity mistakes exit with the usage code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
