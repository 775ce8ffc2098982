package registry

import "time"

// ModuleInfo is the view of one module produced for listing endpoints.
// It is derived per request from storage keys, object tags, and object
// timestamps; nothing here is persisted.
type ModuleInfo struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	DownloadURL string    `json:"download_url,omitempty"`
}

// Tag names attached to module archives at upload time and read back when
// materializing ModuleInfo views.
const (
	TagNamespace   = "namespace"
	TagName        = "name"
	TagVersion     = "version"
	TagDescription = "description"
	TagSource      = "source"
)
