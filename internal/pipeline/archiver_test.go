package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// memSnapshotStore is an in-memory SnapshotStore ordered by FetchedAt.
type memSnapshotStore struct {
	mu     sync.Mutex
	snaps  []*domain.OrderBookSnapshot
	nextID int64
}

func (s *memSnapshotStore) Insert(_ context.Context, snap *domain.OrderBookSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := snap.Clone()
	stored.ID = s.nextID
	s.snaps = append(s.snaps, stored)
	return nil
}

func (s *memSnapshotStore) Latest(_ context.Context, pair domain.Pair) (*domain.OrderBookSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.snaps) - 1; i >= 0; i-- {
		if s.snaps[i].Pair == pair {
			return s.snaps[i].Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memSnapshotStore) ListOlderThan(_ context.Context, cutoff time.Time, limit int) ([]*domain.OrderBookSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.OrderBookSnapshot, 0, limit)
	for _, snap := range s.snaps {
		if snap.FetchedAt.Before(cutoff) {
			out = append(out, snap.Clone())
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memSnapshotStore) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.snaps[:0]
	var deleted int64
	for _, snap := range s.snaps {
		if drop[snap.ID] {
			deleted++
			continue
		}
		kept = append(kept, snap)
	}
	s.snaps = kept
	return deleted, nil
}

// memBlobWriter records uploaded objects.
type memBlobWriter struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func newMemBlobWriter() *memBlobWriter {
	return &memBlobWriter{objects: map[string][]byte{}}
}

func (w *memBlobWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("bucket unavailable")
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects[path] = buf
	return nil
}

func TestArchiverRun(t *testing.T) {
	store := &memSnapshotStore{}
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

	// Five old snapshots and one inside the retention window.
	for i := 0; i < 5; i++ {
		store.Insert(context.Background(), &domain.OrderBookSnapshot{
			Pair:      domain.NewPair("USDT", "VES"),
			FetchedAt: now.Add(-10*24*time.Hour + time.Duration(i)*time.Minute),
			Bids:      []domain.RawOrder{{Price: 4000, Amount: 1}},
			Asks:      []domain.RawOrder{{Price: 4100, Amount: 1}},
		})
	}
	store.Insert(context.Background(), &domain.OrderBookSnapshot{
		Pair:      domain.NewPair("USDT", "VES"),
		FetchedAt: now.Add(-time.Hour),
	})

	writer := newMemBlobWriter()
	a := NewArchiver(store, writer, "0 3 * * *", 7, slog.New(slog.DiscardHandler))
	a.now = func() time.Time { return now }

	archived, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if archived != 5 {
		t.Errorf("archived = %d, want 5", archived)
	}

	writer.mu.Lock()
	if len(writer.objects) != 1 {
		t.Fatalf("uploaded %d objects, want 1: %v", len(writer.objects), writer.objects)
	}
	var body []byte
	for path, obj := range writer.objects {
		if !strings.HasPrefix(path, "archive/snapshots/20260310T030000-") || !strings.HasSuffix(path, ".jsonl") {
			t.Errorf("object path = %q, want archive/snapshots/<stamp>-<page>.jsonl", path)
		}
		body = obj
	}
	writer.mu.Unlock()

	// One JSON document per archived snapshot.
	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var snap domain.OrderBookSnapshot
		if err := json.Unmarshal(sc.Bytes(), &snap); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 5 {
		t.Errorf("jsonl lines = %d, want 5", lines)
	}

	// The recent snapshot survives.
	store.mu.Lock()
	remaining := len(store.snaps)
	store.mu.Unlock()
	if remaining != 1 {
		t.Errorf("remaining rows = %d, want 1", remaining)
	}
}

func TestArchiverKeepsTiedRowsAtPageBoundary(t *testing.T) {
	store := &memSnapshotStore{}
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	base := now.Add(-10 * 24 * time.Hour)

	// Two pages of old rows, where the last row of the first page and
	// the first row of the second share a fetched_at timestamp.
	total := archivePageSize + 2
	for i := 0; i < total; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		if i == archivePageSize {
			at = base.Add(time.Duration(archivePageSize-1) * time.Minute)
		}
		store.Insert(context.Background(), &domain.OrderBookSnapshot{
			Pair:      domain.NewPair("USDT", "VES"),
			FetchedAt: at,
			Bids:      []domain.RawOrder{{Price: 4000, Amount: 1}},
			Asks:      []domain.RawOrder{{Price: 4100, Amount: 1}},
		})
	}

	writer := newMemBlobWriter()
	a := NewArchiver(store, writer, "0 3 * * *", 7, slog.New(slog.DiscardHandler))
	a.now = func() time.Time { return now }

	archived, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if archived != int64(total) {
		t.Errorf("archived = %d, want %d", archived, total)
	}

	// Every row landed in cold storage, the tied one included.
	writer.mu.Lock()
	objects := len(writer.objects)
	lines := 0
	for _, obj := range writer.objects {
		lines += bytes.Count(obj, []byte("\n"))
	}
	writer.mu.Unlock()
	if objects != 2 {
		t.Errorf("uploaded %d objects, want 2", objects)
	}
	if lines != total {
		t.Errorf("jsonl lines = %d, want %d", lines, total)
	}

	store.mu.Lock()
	remaining := len(store.snaps)
	store.mu.Unlock()
	if remaining != 0 {
		t.Errorf("remaining rows = %d, want 0", remaining)
	}
}

func TestArchiverRunNothingToArchive(t *testing.T) {
	writer := newMemBlobWriter()
	a := NewArchiver(&memSnapshotStore{}, writer, "0 3 * * *", 7, slog.New(slog.DiscardHandler))

	archived, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if archived != 0 {
		t.Errorf("archived = %d, want 0", archived)
	}
	if len(writer.objects) != 0 {
		t.Errorf("uploaded %d objects for an empty run", len(writer.objects))
	}
}

func TestArchiverKeepsRowsWhenUploadFails(t *testing.T) {
	store := &memSnapshotStore{}
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	store.Insert(context.Background(), &domain.OrderBookSnapshot{
		Pair:      domain.NewPair("USDT", "VES"),
		FetchedAt: now.Add(-10 * 24 * time.Hour),
	})

	writer := newMemBlobWriter()
	writer.fail = true
	a := NewArchiver(store, writer, "0 3 * * *", 7, slog.New(slog.DiscardHandler))
	a.now = func() time.Time { return now }

	if _, err := a.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil, want upload error")
	}

	store.mu.Lock()
	remaining := len(store.snaps)
	store.mu.Unlock()
	if remaining != 1 {
		t.Errorf("rows deleted despite failed upload: %d remaining, want 1", remaining)
	}
}

func TestNextCronTime(t *testing.T) {
	base := time.Date(2026, 3, 9, 14, 30, 45, 0, time.UTC) // a Monday

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{"daily at 3am", "0 3 * * *", time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)},
		{"every minute", "* * * * *", time.Date(2026, 3, 9, 14, 31, 0, 0, time.UTC)},
		{"hourly on the hour", "0 * * * *", time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)},
		{"specific minute list", "15,45 * * * *", time.Date(2026, 3, 9, 14, 45, 0, 0, time.UTC)},
		{"weekly on sunday", "0 0 * * 0", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"first of month", "0 0 1 * *", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextCronTime(tt.expr, base)
			if err != nil {
				t.Fatalf("nextCronTime(%q) error = %v", tt.expr, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("nextCronTime(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseCronRejectsGarbage(t *testing.T) {
	for _, expr := range []string{
		"",
		"0 3 * *",
		"0 3 * * * *",
		"x 3 * * *",
		"0 3,x * * *",
	} {
		if _, err := parseCron(expr); err == nil {
			t.Errorf("parseCron(%q) = nil, want error", expr)
		}
	}
}

func TestMarshalJSONL(t *testing.T) {
	buf, err := marshalJSONL([]map[string]string{
		{"a": "1"},
		{"b": "<&>"},
	})
	if err != nil {
		t.Fatalf("marshalJSONL() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	// HTML escaping must stay off so payloads round-trip verbatim.
	if !strings.Contains(lines[1], "<&>") {
		t.Errorf("second line escaped HTML: %q", lines[1])
	}
}
