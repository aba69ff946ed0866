package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "losbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "history.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Enabled: false}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st != nil {
		t.Fatal("disabled storage must return a nil store")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Enabled: true}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestAppendAndRecent(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	for i, device := range []string{"bacon", "guacamole", "cheeseburger"} {
		err := st.AppendAnnouncement(ctx, Announcement{
			At:       base.Add(time.Duration(i) * time.Minute),
			Device:   device,
			BuildTS:  base.AddDate(0, 0, -1),
			Version:  "21",
			Filename: "lineage-21-" + device + ".zip",
			Size:     1_000_000,
		})
		if err != nil {
			t.Fatalf("AppendAnnouncement(%s): %v", device, err)
		}
	}

	got, err := st.RecentAnnouncements(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAnnouncements: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	// Newest first.
	if got[0].Device != "cheeseburger" || got[2].Device != "bacon" {
		t.Fatalf("order = [%s %s %s], want newest first", got[0].Device, got[1].Device, got[2].Device)
	}
	if !got[0].At.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("At = %v, want %v", got[0].At, base.Add(2*time.Minute))
	}
	if !got[0].BuildTS.Equal(base.AddDate(0, 0, -1)) {
		t.Fatalf("BuildTS = %v", got[0].BuildTS)
	}
	if got[0].Version != "21" || got[0].Size != 1_000_000 {
		t.Fatalf("row = %+v", got[0])
	}
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := st.AppendAnnouncement(ctx, Announcement{Device: "bacon", BuildTS: time.Now()}); err != nil {
			t.Fatalf("AppendAnnouncement: %v", err)
		}
	}

	got, err := st.RecentAnnouncements(ctx, 2)
	if err != nil {
		t.Fatalf("RecentAnnouncements: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
}

func TestAppendDefaultsTimestamp(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	if err := st.AppendAnnouncement(ctx, Announcement{Device: "bacon", BuildTS: time.Now()}); err != nil {
		t.Fatalf("AppendAnnouncement: %v", err)
	}
	got, err := st.RecentAnnouncements(ctx, 1)
	if err != nil {
		t.Fatalf("RecentAnnouncements: %v", err)
	}
	if len(got) != 1 || got[0].At.IsZero() {
		t.Fatalf("expected a defaulted At timestamp, got %+v", got)
	}
}
