package host

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/openglyph/gesturelink/internal/testutil"
)

func TestDirStoreRoundTrip(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	testutil.AssertNoError(t, err)

	c := &Capture{
		Metadata: Metadata{
			ID:          uuid.New(),
			Participant: "p02",
			Label:       "swipe",
			CapturedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		Samples: [][3]float64{{0.001, -0.002, 0.98}, {0.5, 0.25, -1.125}},
	}

	ctx := context.Background()
	testutil.AssertNoError(t, store.Save(ctx, c))

	got, err := store.Load(ctx, c.Metadata.ID)
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff(c, got); diff != "" {
		t.Fatalf("capture changed across save/load:\n%s", diff)
	}

	ids, err := store.List()
	testutil.AssertNoError(t, err)
	if len(ids) != 1 || ids[0] != c.Metadata.ID {
		t.Fatalf("List = %v", ids)
	}
}

func TestDirStoreLoadMissing(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	testutil.AssertNoError(t, err)
	if _, err := store.Load(context.Background(), uuid.New()); err == nil {
		t.Fatal("loading an absent capture succeeded")
	}
}

func TestDirStoreSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, os.WriteFile(dir+"/notes.txt", []byte("x"), 0o644))
	testutil.AssertNoError(t, os.WriteFile(dir+"/bad.json", []byte("{}"), 0o644))

	ids, err := store.List()
	testutil.AssertNoError(t, err)
	if len(ids) != 0 {
		t.Fatalf("List picked up foreign files: %v", ids)
	}
}
