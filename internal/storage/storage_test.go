package storage

import (
	"path/filepath"
	"testing"
)

type record struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundtrip(t *testing.T) {
	store := newTestStore(t)

	want := record{Name: "alpha", Count: 3, Tags: []string{"a", "b"}}
	if err := store.Set("records.alpha", want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got record
	ok, err := store.Get("records.alpha", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected the record to exist")
	}
	if got.Name != want.Name || got.Count != want.Count || len(got.Tags) != 2 {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestStoreGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	var got record
	ok, err := store.Get("nope", &got)
	if err != nil {
		t.Fatalf("a missing key must not be an error, got %v", err)
	}
	if ok {
		t.Error("expected ok = false for a missing key")
	}
}

func TestStoreSetOverwrites(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("k", record{Name: "first"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("k", record{Name: "second"}); err != nil {
		t.Fatalf("Set again: %v", err)
	}

	var got record
	if _, err := store.Get("k", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "second" {
		t.Errorf("Name = %q, want the overwritten value", got.Name)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("k", record{Name: "gone"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var got record
	ok, err := store.Get("k", &got)
	if err != nil || ok {
		t.Errorf("expected the record to be gone, ok=%v err=%v", ok, err)
	}

	if err := store.Delete("k"); err != nil {
		t.Errorf("deleting a missing key must not error, got %v", err)
	}
}

func TestStoreKeysPrefix(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"recommendations.anilist", "recommendations.sprout", "settings"} {
		if err := store.Set(key, record{Name: key}); err != nil {
			t.Fatalf("Set(%q): %v", key, err)
		}
	}

	keys, err := store.Keys("recommendations.")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "recommendations.anilist" || keys[1] != "recommendations.sprout" {
		t.Errorf("Keys = %v", keys)
	}

	all, err := store.Keys("")
	if err != nil {
		t.Fatalf("Keys(\"\"): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 keys, got %v", all)
	}
}
