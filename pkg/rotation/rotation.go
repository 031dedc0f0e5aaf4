// Package rotation implements day-based backup retention. Whether a day's
// backups are deleted depends only on the day number and a divisor, so the
// policy needs no stored state.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamokano/bucket_backuper/pkg/location"
	"github.com/williamokano/bucket_backuper/pkg/storage"
)

const secondsPerDay = 86400

// ErrInvalidPolicy is returned for a divisor below one or a negative day offset
var ErrInvalidPolicy = errors.New("invalid retention policy")

// Decision is the outcome of Decide for one invocation
type Decision struct {
	TargetDay time.Time
	Due       bool
}

// Options configures a prune run
type Options struct {
	// Prefix of backup names, "backup" when empty
	Prefix string
	// DeleteDivide keeps one day in DeleteDivide once the offset has passed
	DeleteDivide int
	// DeleteTargetDaysLeft is how many days back the examined day lies
	DeleteTargetDaysLeft int
	// Now defaults to time.Now
	Now time.Time
	// Concurrency bounds parallel deletions, defaults to DefaultConcurrency
	Concurrency int
}

// Result reports what a prune run did
type Result struct {
	Decision Decision
	Deleted  []string
}

// Decide computes the day examined by a prune run and whether that day's
// backups are deleted. Days are counted in UTC:
//
//	target = day(now) - daysLeft
//	due    = epochDay(target) mod divide == 0
func Decide(now time.Time, daysLeft, divide int) (Decision, error) {
	if divide < 1 {
		return Decision{}, fmt.Errorf("%w: delete divide must be at least 1, got %d", ErrInvalidPolicy, divide)
	}
	if daysLeft < 0 {
		return Decision{}, fmt.Errorf("%w: delete target days left must not be negative, got %d", ErrInvalidPolicy, daysLeft)
	}

	utc := now.UTC()
	today := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	target := today.AddDate(0, 0, -daysLeft)

	day := epochDay(target)
	return Decision{
		TargetDay: target,
		Due:       floorMod(day, int64(divide)) == 0,
	}, nil
}

func epochDay(t time.Time) int64 {
	secs := t.Unix()
	day := secs / secondsPerDay
	if secs%secondsPerDay != 0 && secs < 0 {
		day--
	}
	return day
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Prune deletes the backups taken on the target day when that day is due.
// A day that is not due returns without touching storage. uri is a bucket
// root or a folder; a folder without its trailing slash is accepted.
func Prune(ctx context.Context, client storage.Client, uri string, opts Options, logger zerolog.Logger) (Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	decision, err := Decide(now, opts.DeleteTargetDaysLeft, opts.DeleteDivide)
	if err != nil {
		return Result{}, err
	}
	result := Result{Decision: decision, Deleted: []string{}}

	pruneLogger := logger.With().
		Str("uri", uri).
		Str("target_day", decision.TargetDay.Format(time.DateOnly)).
		Int("delete_divide", opts.DeleteDivide).
		Int("delete_target_days_left", opts.DeleteTargetDaysLeft).
		Logger()

	if !decision.Due {
		pruneLogger.Info().Msg("target day is kept, nothing to prune")
		return result, nil
	}

	folder, err := folderOf(uri)
	if err != nil {
		return result, err
	}

	dayPrefix := DayPrefix(opts.Prefix, decision.TargetDay)
	files, err := client.ListFiles(ctx, folder.Join(dayPrefix).String(), storage.WithPrefixMatch())
	if err != nil {
		return result, fmt.Errorf("failed to list backups of %s: %w", decision.TargetDay.Format(time.DateOnly), err)
	}

	targets, err := dayTargets(folder, dayPrefix, files)
	if err != nil {
		return result, err
	}

	pruneLogger.Info().
		Str("prefix", dayPrefix).
		Int("matched", len(targets)).
		Msg("pruning backups of target day")

	deleted, err := deleteAll(ctx, client, targets, opts.Concurrency, pruneLogger)
	sort.Strings(deleted)
	result.Deleted = deleted
	if err != nil {
		return result, err
	}

	return result, nil
}

// dayTargets keeps the listed objects that sit directly in folder and whose
// name starts with dayPrefix. Keys further down the tree are not backups of
// this folder and are left alone.
func dayTargets(folder location.Location, dayPrefix string, files []string) ([]string, error) {
	var targets []string
	for _, file := range files {
		loc, err := location.ParseRemote(file)
		if err != nil {
			return nil, fmt.Errorf("unexpected listed object %q: %w", file, err)
		}

		name, ok := strings.CutPrefix(loc.Key(), folder.Key())
		if !ok || !strings.HasPrefix(name, dayPrefix) || strings.Contains(name, "/") {
			continue
		}
		targets = append(targets, loc.String())
	}
	return targets, nil
}

// folderOf parses uri and makes sure it addresses a folder
func folderOf(uri string) (location.Location, error) {
	loc, err := location.ParseRemote(uri)
	if err != nil {
		return location.Location{}, err
	}
	if !loc.IsFolder() {
		loc = loc.WithKey(loc.Key() + "/")
	}
	return loc, nil
}
