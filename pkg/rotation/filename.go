package rotation

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	// TimestampFormat is the timestamp embedded in backup object names
	TimestampFormat = "20060102150405"
	// DayFormat is the day part of TimestampFormat, used for prune matching
	DayFormat = "20060102"

	// Separator joins the prefix and the timestamp
	Separator = "-"

	// DefaultPrefix names backups when no prefix is configured
	DefaultPrefix = "backup"
)

// BackupNameComponents represents the parsed components of a backup object name
type BackupNameComponents struct {
	Prefix    string
	Timestamp time.Time
}

// GenerateBackupName creates an extension-less backup name: prefix-YYYYMMDDhhmmss (UTC)
func GenerateBackupName(prefix string, timestamp time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + Separator + timestamp.UTC().Format(TimestampFormat)
}

// DayPrefix returns the name prefix shared by every backup taken on day:
// prefix-YYYYMMDD (UTC)
func DayPrefix(prefix string, day time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + Separator + day.UTC().Format(DayFormat)
}

// ParseBackupName parses names like backup-20220327224212.tar.bz2. The
// prefix may itself contain the separator; the timestamp is the part after
// the last one.
func ParseBackupName(name string) (BackupNameComponents, error) {
	base := path.Base(name)
	stem, _, _ := strings.Cut(base, ".")

	idx := strings.LastIndex(stem, Separator)
	if idx <= 0 {
		return BackupNameComponents{}, fmt.Errorf("invalid backup name %q: expected prefix%stimestamp", name, Separator)
	}

	timestampStr := stem[idx+len(Separator):]
	timestamp, err := time.Parse(TimestampFormat, timestampStr)
	if err != nil {
		return BackupNameComponents{}, fmt.Errorf("failed to parse timestamp '%s' from %s: %w", timestampStr, name, err)
	}

	return BackupNameComponents{
		Prefix:    stem[:idx],
		Timestamp: timestamp,
	}, nil
}
