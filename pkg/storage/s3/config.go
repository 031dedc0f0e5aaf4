package s3

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/williamokano/bucket_backuper/pkg/storage"
)

// Validate checks that credentials can be resolved: either region, access key
// and secret key are all given, or the host has an AWS credential source
// (environment keys or a shared profile).
func Validate(ctx context.Context, cfg storage.S3Config) error {
	explicit := []string{cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey}
	given := 0
	for _, v := range explicit {
		if v != "" {
			given++
		}
	}

	if given == len(explicit) {
		return nil
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		return fmt.Errorf("%w: s3 requires region, access key id and secret access key together", storage.ErrInvalidConfig)
	}

	if hasEnvironmentCredentials() {
		return nil
	}

	profile := profileName()
	if hasProfileCredentials(ctx, profile) {
		return nil
	}

	return fmt.Errorf("%w: no s3 credentials: AWS profile %q is not resolvable on this host and region, access key id and secret access key were not all given",
		storage.ErrInvalidConfig, profile)
}

func hasEnvironmentCredentials() bool {
	return os.Getenv("AWS_ACCESS_KEY_ID") != "" && os.Getenv("AWS_SECRET_ACCESS_KEY") != ""
}

func profileName() string {
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		return profile
	}
	return "default"
}

// hasProfileCredentials reports whether the shared config files define the
// profile with some way of obtaining credentials
func hasProfileCredentials(ctx context.Context, profile string) bool {
	shared, err := config.LoadSharedConfigProfile(ctx, profile, func(o *config.LoadSharedConfigOptions) {
		if f := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); f != "" {
			o.CredentialsFiles = []string{f}
		}
		if f := os.Getenv("AWS_CONFIG_FILE"); f != "" {
			o.ConfigFiles = []string{f}
		}
	})
	if err != nil {
		return false
	}

	return shared.Credentials.HasKeys() ||
		shared.RoleARN != "" ||
		shared.CredentialProcess != "" ||
		shared.SSOSessionName != "" ||
		shared.SSOStartURL != "" ||
		shared.WebIdentityTokenFile != "" ||
		shared.CredentialSource != ""
}
