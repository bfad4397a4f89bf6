package cache

import (
	"math/big"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := []byte(`{"pools":["a","b"]}`)
	if err := c.Save(1, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := c.Load(1)
	if !ok {
		t.Fatal("expected a cache hit after Save")
	}
	if string(got) != string(payload) {
		t.Fatalf("expected %s, got %s", payload, got)
	}
}

func TestLoadMissCacheReturnsFalse(t *testing.T) {
	c, err := New(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Load(999); ok {
		t.Fatal("expected a miss for a chain never saved")
	}
}

func TestLoadServesFromDiskAfterHotEviction(t *testing.T) {
	// a hot size of 1 forces the first entry out of the LRU once a second
	// chain is saved, so the read must fall back to disk.
	c, err := New(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Save(1, []byte("chain-one")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Save(2, []byte("chain-two")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := c.Load(1)
	if !ok {
		t.Fatal("expected chain 1 to still be loadable from disk")
	}
	if string(got) != "chain-one" {
		t.Fatalf("expected chain-one, got %s", got)
	}
}

func TestSaveLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Save(1, []byte("data")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, ".static-cache-*-*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected the temp file renamed away, found %v", matches)
	}
}

func TestMarshalUnmarshalBigIntRoundTrip(t *testing.T) {
	v, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	if !ok {
		t.Fatal("failed to construct test bigint")
	}
	data, err := MarshalBigInt(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := UnmarshalBigInt(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(v) != 0 {
		t.Fatalf("expected %v, got %v", v, got)
	}
}

func TestUnmarshalBigIntRejectsWrongTypeTag(t *testing.T) {
	if _, err := UnmarshalBigInt([]byte(`{"__type__":"string","value":"5"}`)); err == nil {
		t.Fatal("expected an error for a mismatched type tag")
	}
}

func TestUnmarshalBigIntRejectsMalformedValue(t *testing.T) {
	if _, err := UnmarshalBigInt([]byte(`{"__type__":"bigint","value":"not-a-number"}`)); err == nil {
		t.Fatal("expected an error for a non-numeric value")
	}
}

func TestUnmarshalBigIntRejectsMalformedJSON(t *testing.T) {
	if _, err := UnmarshalBigInt([]byte(`not json`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
