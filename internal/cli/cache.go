package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/crateaudit/pkg/fedora"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Fedora query verdict cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var cacheFile string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached query verdicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cacheFilePath(cacheFile)
			if err != nil {
				return fmt.Errorf("resolve cache file: %w", err)
			}

			store := fedora.NewStore(path, 0)
			count := store.Len()
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Cache file: %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheFile, "cache-file", "", "path to cache file")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cacheFilePath("")
			if err != nil {
				return fmt.Errorf("resolve cache file: %w", err)
			}
			fmt.Println(path)
			return nil
		},
	}
}
