package subtitles

import "testing"

func TestCacheKey(t *testing.T) {
	cases := []struct {
		imdbID  string
		season  int
		episode int
		want    string
	}{
		{"tt0133093", 0, 0, "tt0133093"},
		{"tt0903747", 1, 2, "tt0903747_S1E2"},
		{"tt0903747", 5, 16, "tt0903747_S5E16"},
		{"tt0903747", 1, 0, "tt0903747"},
	}
	for _, tc := range cases {
		if got := CacheKey(tc.imdbID, tc.season, tc.episode); got != tc.want {
			t.Errorf("CacheKey(%q, %d, %d) = %q, want %q", tc.imdbID, tc.season, tc.episode, got, tc.want)
		}
	}
}

func TestCachedFileName(t *testing.T) {
	if got := CachedFileName("tt0903747_S1E2"); got != "tt0903747_S1E2_synced.srt" {
		t.Fatalf("CachedFileName = %q", got)
	}
}

func TestParseStremioID(t *testing.T) {
	imdb, season, episode, err := ParseStremioID("tt0133093")
	if err != nil {
		t.Fatalf("movie id failed: %v", err)
	}
	if imdb != "tt0133093" || season != 0 || episode != 0 {
		t.Fatalf("unexpected movie parse: %s %d %d", imdb, season, episode)
	}

	imdb, season, episode, err = ParseStremioID("tt0903747:1:2")
	if err != nil {
		t.Fatalf("episode id failed: %v", err)
	}
	if imdb != "tt0903747" || season != 1 || episode != 2 {
		t.Fatalf("unexpected episode parse: %s %d %d", imdb, season, episode)
	}

	for _, bad := range []string{"", "movie123", "tt1:2", "tt1:a:b", "tt1:0:1", "tt1:1:2:3"} {
		if _, _, _, err := ParseStremioID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
