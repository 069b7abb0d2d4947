package ember

import (
	"bytes"
	"fmt"
	"testing"
)

func TestOpenPutGetClose(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	got, found := db.Get([]byte("a"))
	if !found || !bytes.Equal(got, []byte("1")) {
		t.Fatalf("Get(a) = %q, %v", got, found)
	}
	if _, found := db.Get([]byte("missing")); found {
		t.Error("Get of a never-written key should report absent")
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// Unflushed writes survive reopen via the write-ahead log.
	db2, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	got, found = db2.Get([]byte("a"))
	if !found || !bytes.Equal(got, []byte("1")) {
		t.Fatalf("Get(a) after reopen = %q, %v", got, found)
	}
}

func TestFullLifecycle(t *testing.T) {
	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err := db.Put([]byte(fmt.Sprintf("key:%02d", i)), []byte(fmt.Sprintf("val:%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete([]byte("key:07")); err != nil {
		t.Fatal(err)
	}
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := db.Compact(); err != nil {
		t.Fatal(err)
	}

	if _, found := db.Get([]byte("key:07")); found {
		t.Error("deleted key visible after compaction")
	}
	for i := 0; i < 30; i++ {
		if i == 7 {
			continue
		}
		key := []byte(fmt.Sprintf("key:%02d", i))
		got, found := db.Get(key)
		if !found || !bytes.Equal(got, []byte(fmt.Sprintf("val:%d", i))) {
			t.Fatalf("Get(%s) = %q, %v", key, got, found)
		}
	}
}
