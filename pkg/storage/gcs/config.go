package gcs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/williamokano/bucket_backuper/pkg/storage"
)

const tokenURI = "https://oauth2.googleapis.com/token"

// Validate checks that a project id and one credential source are configured
func Validate(cfg storage.GCSConfig) error {
	if cfg.ProjectID == "" {
		return fmt.Errorf("%w: gcs requires a project id", storage.ErrInvalidConfig)
	}

	if cfg.KeyFile != "" {
		return nil
	}
	if cfg.ClientEmail != "" && cfg.PrivateKey != "" {
		return nil
	}
	if cfg.ClientEmail != "" || cfg.PrivateKey != "" {
		return fmt.Errorf("%w: gcs client email and private key must be given together", storage.ErrInvalidConfig)
	}

	return fmt.Errorf("%w: gcs requires a service account key file or a client email and private key", storage.ErrInvalidConfig)
}

// NormalizePrivateKey turns escaped "\n" sequences into newlines. Keys passed
// through environment variables or flags usually arrive escaped.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// serviceAccountJSON renders the email/key pair as a service account credential file
func serviceAccountJSON(cfg storage.GCSConfig) ([]byte, error) {
	return json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   cfg.ProjectID,
		"client_email": cfg.ClientEmail,
		"private_key":  NormalizePrivateKey(cfg.PrivateKey),
		"token_uri":    tokenURI,
	})
}
