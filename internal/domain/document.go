package domain

// Document is a unit of raw text plus its metadata. Loaders produce them,
// the chunker slices them, the indexer embeds and stores the slices.
// Metadata always carries at least a "source" key identifying origin.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CloneMetadata returns an independent copy of the document's metadata so a
// chunk can carry it without sharing the map with its source document.
func (d Document) CloneMetadata() map[string]any {
	if d.Metadata == nil {
		return nil
	}
	m := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		m[k] = v
	}
	return m
}

// Source returns the "source" metadata entry, or "unknown" when absent.
func (d Document) Source() string {
	if s, ok := d.Metadata["source"].(string); ok && s != "" {
		return s
	}
	return "unknown"
}
