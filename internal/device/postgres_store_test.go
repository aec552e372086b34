package device

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sentrasec/sentra/internal/testutil"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	fp := *desktopFingerprint()
	if err := store.Append(ctx, "pg-user-1", fp); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := store.List(ctx, "pg-user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("len = %d, want 1", len(history))
	}
	if history[0].DeviceID != fp.DeviceID {
		t.Errorf("device id = %s, want %s", history[0].DeviceID, fp.DeviceID)
	}
	if !history[0].CapturedAt.Equal(fp.CapturedAt) {
		t.Errorf("captured at = %v, want %v", history[0].CapturedAt, fp.CapturedAt)
	}
}

func TestPostgresStoreEvictsBeyondMaxHistory(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	for i := 0; i < MaxHistory+4; i++ {
		fp := *desktopFingerprint()
		fp.DeviceID = fmt.Sprintf("dev-%02d", i)
		fp.CapturedAt = time.Date(2026, 3, 10, 0, i, 0, 0, time.UTC)
		if err := store.Append(ctx, "pg-user-1", fp); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	history, err := store.List(ctx, "pg-user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != MaxHistory {
		t.Fatalf("len = %d, want %d", len(history), MaxHistory)
	}
	if history[0].DeviceID != "dev-04" {
		t.Errorf("oldest surviving = %s, want dev-04", history[0].DeviceID)
	}
	if history[len(history)-1].DeviceID != fmt.Sprintf("dev-%02d", MaxHistory+3) {
		t.Errorf("newest = %s", history[len(history)-1].DeviceID)
	}
}

func TestPostgresStoreClear(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	if err := store.Append(ctx, "pg-user-1", *desktopFingerprint()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, "pg-user-2", *desktopFingerprint()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Clear(ctx, "pg-user-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	cleared, _ := store.List(ctx, "pg-user-1")
	if len(cleared) != 0 {
		t.Errorf("cleared user still has %d entries", len(cleared))
	}
	kept, _ := store.List(ctx, "pg-user-2")
	if len(kept) != 1 {
		t.Errorf("other user history affected: %d entries", len(kept))
	}
}
