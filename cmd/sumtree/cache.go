package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/sumtree/pkg/sumtree/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the digest cache",
	Long: `Commands for managing the digest cache used by 'sumtree hash --cache'.

The cache remembers the digest of each file together with its size and
modification time, so unchanged files are not read again on the next run.
It lives in the XDG cache directory (typically ~/.cache/sumtree/digests)
and is never consulted by verify.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [path]",
	Short: "Forget cached digests",
	Long:  `Removes every cached digest, or only those for files at or below path.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var root string
		if len(args) == 1 {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			root = abs
		}

		return withCache(func(c *cache.Cache) error {
			removed, err := c.Clear(root)
			if err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			printInfo("Removed %d cached digests.", removed)
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop digests of changed or deleted files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(c *cache.Cache) error {
			res, err := c.Prune()
			if err != nil {
				return fmt.Errorf("failed to prune cache: %w", err)
			}
			printInfo("Checked %d entries, removed %d.", res.Checked, res.Removed)
			return nil
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the cache location, the number of cached digests and the database size.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cachePath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			fmt.Println("Cache: empty (not created yet)")
			fmt.Printf("Cache location: %s\n", path)
			return nil
		}

		return withCache(func(c *cache.Cache) error {
			st, err := c.Stats()
			if err != nil {
				return fmt.Errorf("failed to read cache stats: %w", err)
			}
			fmt.Printf("Cache location: %s\n", path)
			fmt.Printf("Cached digests: %d\n", st.Entries)
			fmt.Printf("Cache size: %s\n", humanize.IBytes(uint64(st.LSMBytes+st.LogBytes)))
			return nil
		})
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cachePath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cachePath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Cache.Path, nil
}

// withCache opens the configured cache for the duration of fn.
func withCache(fn func(*cache.Cache) error) error {
	path, err := cachePath()
	if err != nil {
		return err
	}
	c, err := cache.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			logger.Warn("closing digest cache", "error", cerr)
		}
	}()
	return fn(c)
}
