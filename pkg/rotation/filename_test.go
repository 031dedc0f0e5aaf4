package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackupName(t *testing.T) {
	ts := time.Date(2022, 3, 27, 22, 42, 12, 0, time.UTC)

	assert.Equal(t, "backup-20220327224212", GenerateBackupName("", ts))
	assert.Equal(t, "orders-db-20220327224212", GenerateBackupName("orders-db", ts))

	// non-UTC timestamps are rendered in UTC
	tokyo := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, "backup-20220327224212", GenerateBackupName("backup", ts.In(tokyo)))
}

func TestDayPrefix(t *testing.T) {
	day := time.Date(2022, 3, 27, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "backup-20220327", DayPrefix("", day))
	assert.Equal(t, "nightly-20220327", DayPrefix("nightly", day))
}

func TestParseBackupName(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPrefix string
		want       time.Time
		wantErr    bool
	}{
		{
			name:       "default prefix with extension chain",
			input:      "backup-20220327224212.tar.bz2",
			wantPrefix: "backup",
			want:       time.Date(2022, 3, 27, 22, 42, 12, 0, time.UTC),
		},
		{
			name:       "prefix containing separator",
			input:      "orders-db-20240101000000.gz",
			wantPrefix: "orders-db",
			want:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "full location",
			input:      "s3://bucket/daily/backup-20240101000000.tar.zst",
			wantPrefix: "backup",
			want:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "no separator",
			input:   "backup.tar.bz2",
			wantErr: true,
		},
		{
			name:    "bad timestamp",
			input:   "backup-2022-03-27.tar.bz2",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBackupName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefix, got.Prefix)
			assert.True(t, tt.want.Equal(got.Timestamp), "got %v", got.Timestamp)
		})
	}
}
