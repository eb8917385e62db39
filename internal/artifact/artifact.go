// Package artifact models references to externally stored files. The engine
// never touches artifact bytes after upload; claims carry only the reference.
package artifact

import "context"

// Ref is an opaque pointer to an externally stored file. Size and Mime are
// reported by the artifact store and re-validated against the engine's own
// limits before a claim references them.
type Ref struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool { return r.URL == "" }

// Upload is raw content handed to the store collaborator.
type Upload struct {
	Content []byte
	Mime    string
}

// Store is the external artifact storage collaborator. Implementations must
// guarantee durability before returning: a returned Ref is assumed durable.
type Store interface {
	Store(ctx context.Context, upload Upload) (Ref, error)
}
