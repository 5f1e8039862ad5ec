package sources

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/copyguard/internal/domain/integrations"
)

// Item is one piece of content pulled from an external platform.
type Item struct {
	ExternalID  string `json:"external_id"`
	Text        string `json:"text"`
	SourceLabel string `json:"source_label"`
}

// Location is a channel or database that can be fetched from.
type Location struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private,omitempty"`
}

// Adapter port (interface untuk platform konten eksternal)
type Adapter interface {
	Platform() integrations.Platform
	// FetchRecent returns non-empty, human-authored items only.
	FetchRecent(ctx context.Context, credentials, locationID string, limit int) ([]Item, error)
	ListLocations(ctx context.Context, credentials string) ([]Location, error)
}

// Reference builds the stable source reference stored on a review.
func Reference(p integrations.Platform, it Item) string {
	if p == integrations.PlatformSlack {
		return it.SourceLabel + "/" + it.ExternalID
	}
	return it.ExternalID
}

// AdapterError means the platform was unreachable or rejected the credentials.
type AdapterError struct {
	Platform integrations.Platform
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s API error: %v", e.Platform, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
