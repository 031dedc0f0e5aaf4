package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/williamokano/bucket_backuper/pkg/archive"
	"github.com/williamokano/bucket_backuper/pkg/backup"
	"github.com/williamokano/bucket_backuper/pkg/dumper"
)

type transferFlags struct {
	dumper  string
	options string
	prefix  string
	format  string
}

func (f *transferFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dumper, "dumper", "d", "", fmt.Sprintf("dump tool to use (%v)", dumper.Kinds()))
	cmd.Flags().StringVarP(&f.options, "options", "o", "", "options passed untouched to the dump or restore tool")
	_ = cmd.MarkFlagRequired("dumper")
}

// checkDumper rejects an unknown dump tool before any connection is made
func checkDumper(kind string) error {
	if !slices.Contains(dumper.Kinds(), strings.ToLower(kind)) {
		return fmt.Errorf("unknown dumper %q (available: %s)", kind, strings.Join(dumper.Kinds(), ", "))
	}
	return nil
}

func newBackupCmd(a *app) *cobra.Command {
	var (
		flags  transferFlags
		stream bool
		pipe   bool
	)

	cmd := &cobra.Command{
		Use:   "backup DESTINATION",
		Short: "Dump, compress and upload a backup",
		Long: `Dump with the selected tool, compress the result and upload it to DESTINATION.
A folder destination (ending in /) receives PREFIX-YYYYMMDDhhmmss plus the
archive extension; any other destination is used as the object name.`,
		Example: `  bucket_backuper backup s3://backups/postgres/ --dumper postgres --options "--clean"
  bucket_backuper backup gs://backups/www/ --dumper files --options /var/www --format zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			destination := args[0]

			if err := checkDumper(flags.dumper); err != nil {
				return err
			}

			rt, err := a.setup(cmd.Context(), destination)
			if err != nil {
				return err
			}
			defer rt.close()

			format, err := rt.cfg.GetFormat()
			if flags.format != "" {
				format, err = archive.ParseFormat(flags.format)
			}
			if err != nil {
				return err
			}

			prefix := flags.prefix
			if prefix == "" {
				prefix = rt.cfg.GetBackupfilePrefix()
			}

			d, err := dumper.New(flags.dumper, rt.cfg.Dumper, rt.logger)
			if err != nil {
				return err
			}

			opts := backup.Options{
				UserOptions: flags.options,
				Prefix:      prefix,
				Format:      format,
				Streaming:   stream,
			}

			var result backup.Result
			if pipe {
				streamer, ok := d.(dumper.StreamDumper)
				if !ok {
					return fmt.Errorf("dumper %q cannot write to a pipe", flags.dumper)
				}
				result, err = rt.runner.BackupStreamOnce(cmd.Context(), streamer.StreamDump, destination, opts)
			} else {
				result, err = rt.runner.BackupOnce(cmd.Context(), d.Dump, destination, opts)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Location)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.prefix, "prefix", "", "backup name prefix (default from config, else \"backup\")")
	cmd.Flags().StringVar(&flags.format, "format", "", "compression: bz2, gz or zst (default from config, else bz2)")
	cmd.Flags().BoolVar(&stream, "stream", false, "upload the archive while it is produced instead of staging it on disk")
	cmd.Flags().BoolVar(&pipe, "pipe", false, "read the dump from the tool's stdout and upload it as a single compressed file")
	cmd.MarkFlagsMutuallyExclusive("stream", "pipe")

	return cmd
}
