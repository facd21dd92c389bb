package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local cache",
	RunE:  runCacheStatus,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each cache entry and whether it is fresh",
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached snapshot",
	Long: `Remove every cached snapshot so the next read goes to the remote store.

The form in progress is kept.`,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStatus(cmd *cobra.Command, _ []string) error {
	if cacheService == nil {
		return errors.New("cache service not configured")
	}

	cmd.Printf("%-14s %-8s %-6s %-6s %s\n", "KEY", "PRESENT", "VALID", "ROWS", "STORED")
	for _, st := range cacheService.Status(cmd.Context()) {
		rows := "-"
		stored := "-"
		if st.Present {
			stored = st.StoredAt
			if st.Rows >= 0 {
				rows = strconv.Itoa(st.Rows)
			}
		}
		cmd.Printf("%-14s %-8s %-6s %-6s %s\n", st.Key, yesNo(st.Present), yesNo(st.Valid), rows, stored)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if cacheService == nil {
		return errors.New("cache service not configured")
	}
	cacheService.Clear(cmd.Context())
	cmd.Println("Cache cleared.")
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
