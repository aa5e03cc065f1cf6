package storage

import (
	"errors"
	"testing"
)

func TestMemDBPutGetDelete(t *testing.T) {
	db := NewMemDB()
	key := []byte("market/listing/abc")
	value := []byte("payload")

	if _, err := db.Get(key); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := db.Put(key, value); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(value) {
		t.Fatalf("expected %q, got %q", value, got)
	}
	has, err := db.Has(key)
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !has {
		t.Fatalf("expected key present")
	}
	if err := db.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get(key); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	key := []byte("k")
	value := []byte("original")
	if err := db.Put(key, value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X'

	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("stored value must not alias the caller's slice, got %q", got)
	}
	got[0] = 'Y'
	again, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(again) != "original" {
		t.Fatalf("returned value must not alias the stored slice, got %q", again)
	}
}
