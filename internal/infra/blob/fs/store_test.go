package fs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"fieldroster/internal/blob/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "exports/roster.json", strings.NewReader(`{"teams":[]}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"team_count": "0"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(`{"teams":[]}`)) || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := store.Get(ctx, "exports/roster.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"teams":[]}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got.ContentType != "application/json" || got.Metadata["team_count"] != "0" {
		t.Fatalf("metadata not preserved: %+v", got)
	}
	if got.ETag != info.ETag {
		t.Fatalf("etag mismatch %q != %q", got.ETag, info.ETag)
	}
}

func TestPutRefusesOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "a.txt", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "a.txt", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("expected overwrite to fail")
	}
}

func TestKeySanitization(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/absolute"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestHeadDeleteList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"exports/a.json", "exports/b.json", "other/c.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("data"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	if _, err := store.Head(ctx, "exports/a.json"); err != nil {
		t.Fatalf("head: %v", err)
	}

	infos, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a.json" || infos[1].Key != "exports/b.json" {
		t.Fatalf("unexpected listing %+v", infos)
	}

	deleted, err := store.Delete(ctx, "exports/a.json")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "exports/a.json")
	if err != nil || deleted {
		t.Fatalf("second delete must report absence: %v %v", deleted, err)
	}
	if _, err := store.Head(ctx, "exports/a.json"); err == nil {
		t.Fatalf("expected head of deleted blob to fail")
	}
}

func TestPresignURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	url, err := store.PresignURL(ctx, "a.txt", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "http://local.blob/") {
		t.Fatalf("unexpected url %q", url)
	}
	if _, err := store.PresignURL(ctx, "a.txt", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported method error, got %v", err)
	}
}
