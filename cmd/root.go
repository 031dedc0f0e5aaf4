package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by every command of one invocation
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
}

// NewRootCmd builds the command tree with its own viper instance
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "bucket_backuper",
		Short: "Back up databases and file trees to S3 or GCS",
		Long: `bucket_backuper dumps a database or directory, compresses it and uploads it
to an s3:// or gs:// location. It restores from the same locations and prunes
old backups with a day based retention policy.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadEnv()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (.json, .yaml or .yml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "json or console")
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newBackupCmd(a),
		newRestoreCmd(a),
		newListCmd(a),
		newPruneCmd(a),
		newValidateCmd(a),
	)

	return rootCmd
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

// loadEnv reads the dotenv file without overriding variables already set.
// A missing default file is not an error.
func (a *app) loadEnv() error {
	if a.envFile == "" {
		return nil
	}
	if err := godotenv.Load(a.envFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", a.envFile, err)
	}
	return nil
}
