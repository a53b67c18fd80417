package addon

import "subsync/internal/config"

// Manifest is the Stremio addon descriptor served at /manifest.json.
type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Types       []string `json:"types"`
	Catalogs    []any    `json:"catalogs"`
	Resources   []string `json:"resources"`
	IDPrefixes  []string `json:"idPrefixes"`
}

// BuildManifest derives the addon manifest from configuration.
func BuildManifest(cfg *config.Config) Manifest {
	return Manifest{
		ID:          cfg.Addon.ID,
		Version:     cfg.Addon.Version,
		Name:        cfg.Addon.Name,
		Description: cfg.Addon.Description,
		Types:       []string{"movie", "series"},
		Catalogs:    []any{},
		Resources:   []string{"subtitles"},
		IDPrefixes:  []string{"tt"},
	}
}
