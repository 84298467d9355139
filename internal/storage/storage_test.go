package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kingrea/releasekit/internal/version"
)

func TestMemorySaveListGet(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemory(WithClock(func() time.Time { return fixed }))

	for _, v := range []string{"1.0.0", "v1.2.0-rc.1", "1.2.0", "1.10.0"} {
		if err := store.Save(ctx, Release{Repository: "acme/app", Version: v, Body: "notes " + v}); err != nil {
			t.Fatalf("save %s: %v", v, err)
		}
	}
	if err := store.Save(ctx, Release{Repository: "acme/other", Version: "9.9.9"}); err != nil {
		t.Fatalf("save other: %v", err)
	}

	list, err := store.List(ctx, "acme/app")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, r := range list {
		got = append(got, r.Version)
	}
	want := []string{"1.10.0", "1.2.0", "1.2.0-rc.1", "1.0.0"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	rel, err := store.Get(ctx, "acme/app", "v1.2.0-rc.1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rel.Tag != "v1.2.0-rc.1" || !rel.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected release %+v", rel)
	}
	if _, err := store.Get(ctx, "acme/app", "3.0.0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySaveUpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemory(WithClock(func() time.Time { return now }))
	if err := store.Save(ctx, Release{Repository: "acme/app", Version: "1.0.0", Draft: true}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour)
	if err := store.Save(ctx, Release{Repository: "acme/app", Version: "1.0.0", Body: "final"}); err != nil {
		t.Fatal(err)
	}
	rel, err := store.Get(ctx, "acme/app", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if rel.Draft || rel.Body != "final" || rel.CreatedAt.Hour() != 0 {
		t.Fatalf("unexpected upsert result %+v", rel)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	if _, err := Normalize(Release{Version: "1.0.0"}); !errors.Is(err, ErrInvalidRelease) {
		t.Fatalf("expected missing repository error")
	}
	if _, err := Normalize(Release{Repository: "acme/app", Version: "one"}); !errors.Is(err, version.ErrInvalidVersion) {
		t.Fatalf("expected invalid version, got %v", err)
	}
}

func TestRecordsSkipDrafts(t *testing.T) {
	recs := Records([]Release{
		{Version: "1.0.0", Body: "a"},
		{Version: "1.1.0", Body: "b", Draft: true},
	})
	if len(recs) != 1 || recs[0].Version != "1.0.0" {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestMemoryImportAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	err := store.Import(ctx, []Release{
		{Repository: "acme/app", Version: "1.0.0"},
		{Repository: "acme/app", Version: "broken"},
	})
	if err == nil {
		t.Fatalf("expected import error")
	}
	if list, _ := store.List(ctx, "acme/app"); len(list) != 0 {
		t.Fatalf("expected nothing saved, got %d", len(list))
	}
}
