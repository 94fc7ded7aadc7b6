package models

// catalogModifiedAt is reported for every remote model; the remote catalog has no such field.
const catalogModifiedAt = "2025-02-27T00:00:00Z"

// RemoteModel is one entry of the remote backend's /models listing.
type RemoteModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RemoteModelList is the remote backend's /models response body.
type RemoteModelList struct {
	Data []RemoteModel `json:"data"`
}

// Tag is one model in the Ollama /api/tags shape
type Tag struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// Catalog is the /api/tags response body
type Catalog struct {
	Models []Tag `json:"models"`
}

// FromRemote reshapes the remote model listing into the Ollama catalog shape.
// Models are advertised with the ":latest" tag so Ollama clients accept them.
func FromRemote(list RemoteModelList) Catalog {
	tags := make([]Tag, 0, len(list.Data))
	for _, m := range list.Data {
		if m.ID == "" {
			continue
		}
		name := m.Name
		if name == "" {
			name = m.ID
		}
		tags = append(tags, Tag{
			Name:       name,
			Model:      m.ID + LatestTag,
			ModifiedAt: catalogModifiedAt,
			Size:       0,
			Digest:     "n/a",
		})
	}
	return Catalog{Models: tags}
}
