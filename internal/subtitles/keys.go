package subtitles

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var imdbIDRe = regexp.MustCompile(`^tt\d+$`)

// CacheKey builds the stable identifier for a title. Movies use the bare
// IMDB ID; episodes append the season/episode pair.
func CacheKey(imdbID string, season, episode int) string {
	base := strings.TrimSpace(imdbID)
	if season > 0 && episode > 0 {
		return fmt.Sprintf("%s_S%dE%d", base, season, episode)
	}
	return base
}

// CachedFileName returns the published file name for a cache key.
func CachedFileName(cacheKey string) string {
	return cacheKey + "_synced.srt"
}

// ValidIMDBID reports whether value looks like a Stremio IMDB identifier.
func ValidIMDBID(value string) bool {
	return imdbIDRe.MatchString(strings.TrimSpace(value))
}

// ParseStremioID splits a Stremio content identifier into its parts.
// Movies arrive as "tt0133093", episodes as "tt0903747:1:2".
func ParseStremioID(id string) (imdbID string, season, episode int, err error) {
	parts := strings.Split(strings.TrimSpace(id), ":")
	if len(parts) != 1 && len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("malformed content id %q", id)
	}
	imdbID = parts[0]
	if !ValidIMDBID(imdbID) {
		return "", 0, 0, fmt.Errorf("invalid imdb id %q", imdbID)
	}
	if len(parts) == 3 {
		season, err = strconv.Atoi(parts[1])
		if err != nil || season <= 0 {
			return "", 0, 0, fmt.Errorf("invalid season in content id %q", id)
		}
		episode, err = strconv.Atoi(parts[2])
		if err != nil || episode <= 0 {
			return "", 0, 0, fmt.Errorf("invalid episode in content id %q", id)
		}
	}
	return imdbID, season, episode, nil
}
