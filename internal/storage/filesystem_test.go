package storage

import (
	"context"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "media/ab/file.png", want: "media/ab/file.png"},
		{in: "/media//ab/./file.png", want: "media/ab/file.png"},
		{in: `media\ab\file.png`, want: "media/ab/file.png"},
		{in: "../escape.png", wantErr: true},
		{in: "  ", wantErr: true},
		{in: ".", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sanitizeKey(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestWriteReadRemove(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	key, err := store.Write(ctx, "/media/ab/x.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "media/ab/x.png" {
		t.Fatalf("key = %q", key)
	}
	data, err := store.Read(ctx, key)
	if err != nil || string(data) != "png" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if err := store.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, key); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
	if _, err := store.Read(ctx, key); err == nil {
		t.Fatal("expected read error after remove")
	}
}

func TestContentKey(t *testing.T) {
	if got := ContentKey("media", "abcdef", ".png"); got != "media/ab/abcdef.png" {
		t.Fatalf("ContentKey = %q", got)
	}
	if got := ContentKey("/media/", "a", ""); got != "media/a/a.bin" {
		t.Fatalf("ContentKey = %q", got)
	}
}

func TestList(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	keys, err := store.List(ctx, "media")
	if err != nil || len(keys) != 0 {
		t.Fatalf("List empty = %v, %v", keys, err)
	}

	for _, key := range []string{"media/cd/cd01.png", "media/ab/ab01.png", "exports/site.zip"} {
		if _, err := store.Write(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Write %s: %v", key, err)
		}
	}
	keys, err = store.List(ctx, "/media/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0] != "media/ab/ab01.png" || keys[1] != "media/cd/cd01.png" {
		t.Fatalf("keys = %v", keys)
	}
	if _, err := store.List(ctx, "../etc"); err == nil {
		t.Fatal("expected error for escaping prefix")
	}
}
