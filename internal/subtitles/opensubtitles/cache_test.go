package opensubtitles

import (
	"testing"

	"subsync/internal/logging"
)

func TestCacheStoreAndLoad(t *testing.T) {
	cache, err := NewCache(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	payload := []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n")
	entry := CacheEntry{
		FileID:   42,
		Language: "pob",
		FileName: "example.srt",
		IMDBID:   "tt0133093",
	}
	if _, err := cache.Store(entry, payload); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	result, ok, err := cache.Load(42)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(result.Data) != string(payload) {
		t.Fatalf("payload mismatch: %q", result.Data)
	}
	if result.Entry.Language != "pob" || result.Entry.IMDBID != "tt0133093" {
		t.Fatalf("unexpected entry: %+v", result.Entry)
	}

	download := result.DownloadResult()
	if download.FileName != "example.srt" || string(download.Data) != string(payload) {
		t.Fatalf("unexpected download result: %+v", download)
	}
}

func TestCacheLoadMiss(t *testing.T) {
	cache, err := NewCache(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	_, ok, err := cache.Load(99)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
}
