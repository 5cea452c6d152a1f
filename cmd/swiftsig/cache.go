package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newthinker/swiftsig/internal/app"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the price cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [PAIR]",
	Short: "Delete cached price ranges for one pair, or all of them",
	Example: `  swiftsig cache clear EURUSD
  swiftsig cache clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	var pair string
	if len(args) == 1 {
		pair = strings.ToUpper(strings.TrimSpace(args[0]))
	}
	removed, err := a.ClearCache(cmd.Context(), pair)
	if err != nil {
		return err
	}

	what := "all pairs"
	if pair != "" {
		what = pair
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached price range(s) for %s\n", removed, what)
	return nil
}
