package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"fieldroster/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "exports/roster.json", strings.NewReader("payload"), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"source": "test"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("payload")) {
		t.Fatalf("unexpected size %d", info.Size)
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
	if string(body) != "payload" {
		t.Fatalf("unexpected body %q", body)
	}
	if got.ContentType != "application/json" || got.Metadata["source"] != "test" {
		t.Fatalf("metadata not preserved: %+v", got)
	}
}

func TestPutRefusesOverwrite(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "a", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "a", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("expected overwrite to fail")
	}
}

func TestDeleteAndList(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"b", "a/1", "a/2"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "a/1" || infos[1].Key != "a/2" {
		t.Fatalf("unexpected listing %+v", infos)
	}

	deleted, err := store.Delete(ctx, "b")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "b")
	if err != nil || deleted {
		t.Fatalf("second delete must report absence: %v %v", deleted, err)
	}
}

func TestPresignUnsupported(t *testing.T) {
	store := New()
	if _, err := store.PresignURL(context.Background(), "a", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
