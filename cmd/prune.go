package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCmd(a *app) *cobra.Command {
	var (
		prefix      string
		divide      int
		daysLeft    int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "prune URI",
		Short: "Delete the backups of one past day when the retention policy says so",
		Long: `Look at the day that lies --delete-target-days-left days before today (UTC).
When its epoch day is divisible by --delete-divide, every backup of that day
under URI is deleted; otherwise nothing is listed or deleted.`,
		Example: `  bucket_backuper prune s3://backups/postgres/ --delete-divide 2 --delete-target-days-left 7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := args[0]

			rt, err := a.setup(cmd.Context(), uri)
			if err != nil {
				return err
			}
			defer rt.close()

			opts := rt.cfg.RotationOptions()
			if cmd.Flags().Changed("prefix") {
				opts.Prefix = prefix
			}
			if cmd.Flags().Changed("delete-divide") {
				opts.DeleteDivide = divide
			}
			if cmd.Flags().Changed("delete-target-days-left") {
				opts.DeleteTargetDaysLeft = daysLeft
			}
			if cmd.Flags().Changed("concurrency") {
				opts.Concurrency = concurrency
			}

			result, err := rt.runner.Prune(cmd.Context(), uri, opts)
			for _, deleted := range result.Deleted {
				fmt.Fprintln(cmd.OutOrStdout(), deleted)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "backup name prefix (default from config, else \"backup\")")
	cmd.Flags().IntVar(&divide, "delete-divide", 0, "delete a day's backups when its epoch day is divisible by this")
	cmd.Flags().IntVar(&daysLeft, "delete-target-days-left", 0, "how many days before today the examined day lies")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel deletions (default 4)")

	return cmd
}
