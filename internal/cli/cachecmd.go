package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/validate"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the result cache",
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete cache entries older than the TTL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)

		rc, err := openCache(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()

		deleted, err := rc.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired entries (ttl %s)\n", deleted, rc.TTL())
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored analysis by id as JSON",
	Long:  `Get prints a stored analysis regardless of its age, the same lookup the share-by-id API uses.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validate.ID(args[0]); err != nil {
			return userError(err)
		}
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)

		rc, err := openCache(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()

		result, err := rc.GetByID(ctx, args[0])
		if err != nil {
			return userError(err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheGetCmd)
}
