package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/williamokano/bucket_backuper/pkg/storage"
)

func newListCmd(a *app) *cobra.Command {
	var (
		prefixMatch  bool
		relative     bool
		folderMarker bool
	)

	cmd := &cobra.Command{
		Use:   "list URI",
		Short: "List objects at a location",
		Long: `List the objects at URI, one per line. A URI ending in / lists the folder;
otherwise only the exact key is returned unless --prefix-match is given.`,
		Example: `  bucket_backuper list s3://backups/postgres/
  bucket_backuper list gs://backups/postgres/backup-20220327 --prefix-match --relative`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := args[0]

			rt, err := a.setup(cmd.Context(), uri)
			if err != nil {
				return err
			}
			defer rt.close()

			var opts []storage.ListOption
			if prefixMatch {
				opts = append(opts, storage.WithPrefixMatch())
			}
			if relative {
				opts = append(opts, storage.WithRelativePaths())
			}
			if folderMarker {
				opts = append(opts, storage.WithFolderMarker())
			}

			files, err := rt.runner.ListFiles(cmd.Context(), uri, opts...)
			if err != nil {
				return err
			}

			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&prefixMatch, "prefix-match", false, "match every key starting with the given key")
	cmd.Flags().BoolVar(&relative, "relative", false, "print names relative to the queried folder")
	cmd.Flags().BoolVar(&folderMarker, "include-folder", false, "include the folder marker object itself")

	return cmd
}
