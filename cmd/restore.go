package cmd

import (
	"github.com/spf13/cobra"

	"github.com/williamokano/bucket_backuper/pkg/backup"
	"github.com/williamokano/bucket_backuper/pkg/dumper"
)

func newRestoreCmd(a *app) *cobra.Command {
	var flags transferFlags

	cmd := &cobra.Command{
		Use:   "restore SOURCE",
		Short: "Download, expand and restore a backup",
		Long: `Download the SOURCE object, undo its extension chain (.tar, .bz2, .gz, .zst)
and hand the result to the selected restore tool.`,
		Example: `  bucket_backuper restore s3://backups/postgres/backup-20220327224212.tar.bz2 --dumper postgres`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]

			if err := checkDumper(flags.dumper); err != nil {
				return err
			}

			rt, err := a.setup(cmd.Context(), source)
			if err != nil {
				return err
			}
			defer rt.close()

			d, err := dumper.New(flags.dumper, rt.cfg.Dumper, rt.logger)
			if err != nil {
				return err
			}

			_, err = rt.runner.RestoreOnce(cmd.Context(), d.Restore, source, backup.Options{UserOptions: flags.options})
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
