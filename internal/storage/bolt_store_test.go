package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestBoltStoreRecordsAndExpiresEntries(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		EntryTTL:        time.Minute,
		CleanupInterval: time.Hour,
	}

	storeRaw, err := openBolt(filepath.Join(dir, "nested", "journal.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	clock := time.Now()
	store.now = func() time.Time { return clock }

	if _, found, err := store.Last("+14155552671"); err != nil || found {
		t.Fatalf("expected no entry, found=%v err=%v", found, err)
	}

	if err := store.Record("+14155552671", Entry{StatusCode: 200, Prefix: "1415"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entry, found, err := store.Last("+14155552671")
	if err != nil || !found {
		t.Fatalf("expected entry, found=%v err=%v", found, err)
	}
	if entry.StatusCode != 200 || entry.Prefix != "1415" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !entry.ExpiresAt.Equal(clock.Add(time.Minute).UTC()) {
		t.Fatalf("unexpected expiry %v", entry.ExpiresAt)
	}

	clock = clock.Add(2 * time.Minute)
	if _, found, err := store.Last("+14155552671"); err != nil || found {
		t.Fatalf("expected entry to expire, found=%v err=%v", found, err)
	}
}

func TestBoltStoreCleanupPurgesExpired(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "journal.db"), Options{
		EntryTTL:        time.Second,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	clock := time.Now()
	store.now = func() time.Time { return clock }
	if err := store.Record("a", Entry{StatusCode: 404}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	clock = clock.Add(2 * time.Minute)
	if err := store.maybeCleanupExpired(clock); err != nil {
		t.Fatalf("maybeCleanupExpired: %v", err)
	}

	var keys int
	_ = store.db.View(func(tx *bolt.Tx) error {
		keys = tx.Bucket([]byte(journalBucket)).Stats().KeyN
		return nil
	})
	if keys != 0 {
		t.Fatalf("expected expired entry to be purged, %d keys remain", keys)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record("x", Entry{}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	if _, found, _ := store.Last("x"); found {
		t.Fatalf("noop store should never find entries")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}

func TestNoopStoreRecordsNothing(t *testing.T) {
	store := Noop()
	if err := store.Record("+14155552671", Entry{StatusCode: 200}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, found, err := store.Last("+14155552671"); err != nil || found {
		t.Fatalf("expected no entry, found=%v err=%v", found, err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
