package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// archivePageSize bounds how many snapshots one archive object holds.
const archivePageSize = 500

// Archiver moves snapshot history older than the retention window from
// PostgreSQL to S3 cold storage as newline-delimited JSON, then deletes
// the archived rows.
type Archiver struct {
	snapshots     domain.SnapshotStore
	writer        domain.BlobWriter
	cron          string
	retentionDays int
	logger        *slog.Logger

	now func() time.Time
}

// NewArchiver creates an Archiver running on the given 5-field cron
// expression ("minute hour day-of-month month day-of-week").
func NewArchiver(snapshots domain.SnapshotStore, writer domain.BlobWriter, cron string, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		snapshots:     snapshots,
		writer:        writer,
		cron:          cron,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
		now:           time.Now,
	}
}

// Run executes a single archive pass. Snapshots older than the retention
// cutoff are drained in pages; each page is uploaded, then its rows are
// deleted by id, then the next page is read. Returns the number of
// archived snapshots.
func (a *Archiver) Run(ctx context.Context) (int64, error) {
	cutoff := a.now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	runStamp := a.now().UTC().Format("20060102T150405")

	a.logger.Info("archive run starting",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	var archived int64
	for page := 0; ; page++ {
		snaps, err := a.snapshots.ListOlderThan(ctx, cutoff, archivePageSize)
		if err != nil {
			return archived, fmt.Errorf("archive: list snapshots: %w", err)
		}
		if len(snaps) == 0 {
			break
		}

		buf, err := marshalJSONL(snaps)
		if err != nil {
			return archived, fmt.Errorf("archive: marshal page %d: %w", page, err)
		}

		path := fmt.Sprintf("archive/snapshots/%s-%04d.jsonl", runStamp, page)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return archived, fmt.Errorf("archive: upload %s: %w", path, err)
		}

		// Rows are only deleted once their page is safely uploaded,
		// and only the rows that are actually in it.
		ids := make([]int64, len(snaps))
		for i, snap := range snaps {
			ids[i] = snap.ID
		}
		deleted, err := a.snapshots.DeleteByIDs(ctx, ids)
		if err != nil {
			return archived, fmt.Errorf("archive: delete page %d: %w", page, err)
		}

		archived += deleted
		a.logger.Info("archived snapshot page",
			slog.String("path", path),
			slog.Int("snapshots", len(snaps)),
			slog.Int64("deleted", deleted),
		)
	}

	a.logger.Info("archive run complete", slog.Int64("archived", archived))
	return archived, nil
}

// RunCron runs the archiver on its cron schedule until ctx is cancelled.
func (a *Archiver) RunCron(ctx context.Context) error {
	a.logger.Info("archiver cron started", slog.String("cron", a.cron))

	for {
		next, err := nextCronTime(a.cron, a.now().UTC())
		if err != nil {
			return fmt.Errorf("parsing cron expression %q: %w", a.cron, err)
		}

		a.logger.Info("archiver waiting for next trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", time.Until(next)),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if _, err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// cronField is one parsed cron field.
type cronField struct {
	wildcard bool
	values   []int
}

func (f cronField) matches(val int) bool {
	if f.wildcard {
		return true
	}
	for _, v := range f.values {
		if v == val {
			return true
		}
	}
	return false
}

// parseCronField parses a single field (e.g. "0", "*", "1,15").
func parseCronField(field string) (cronField, error) {
	if field == "*" {
		return cronField{wildcard: true}, nil
	}

	parts := strings.Split(field, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return cronField{}, fmt.Errorf("invalid cron field value %q: %w", p, err)
		}
		values = append(values, v)
	}
	return cronField{values: values}, nil
}

type parsedCron struct {
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

func (c parsedCron) matchesTime(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dayOfMonth.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.dayOfWeek.matches(int(t.Weekday()))
}

func parseCron(expr string) (parsedCron, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return parsedCron{}, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	var (
		parsed parsedCron
		err    error
	)
	if parsed.minute, err = parseCronField(fields[0]); err != nil {
		return parsedCron{}, fmt.Errorf("parsing minute field: %w", err)
	}
	if parsed.hour, err = parseCronField(fields[1]); err != nil {
		return parsedCron{}, fmt.Errorf("parsing hour field: %w", err)
	}
	if parsed.dayOfMonth, err = parseCronField(fields[2]); err != nil {
		return parsedCron{}, fmt.Errorf("parsing day-of-month field: %w", err)
	}
	if parsed.month, err = parseCronField(fields[3]); err != nil {
		return parsedCron{}, fmt.Errorf("parsing month field: %w", err)
	}
	if parsed.dayOfWeek, err = parseCronField(fields[4]); err != nil {
		return parsedCron{}, fmt.Errorf("parsing day-of-week field: %w", err)
	}
	return parsed, nil
}

// nextCronTime finds the first minute after 'after' matching the
// expression, searching at most one year ahead.
func nextCronTime(expr string, after time.Time) (time.Time, error) {
	cron, err := parseCron(expr)
	if err != nil {
		return time.Time{}, err
	}

	candidate := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.Add(366 * 24 * time.Hour)

	for candidate.Before(limit) {
		if cron.matchesTime(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}

	return time.Time{}, fmt.Errorf("no matching cron time within one year for %q", expr)
}
