package guidelines

import (
	"context"
	"time"
)

// SingletonKey is the only row key the guidelines table ever holds.
const SingletonKey = "default"

// BrandGuidelines is the free-text policy used as analysis context.
type BrandGuidelines struct {
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy *string   `json:"updated_by"`
}

// Repository port for the singleton guidelines record
type Repository interface {
	// Get returns the current guidelines, creating an empty record first if
	// none exists yet.
	Get(ctx context.Context) (*BrandGuidelines, error)
	Save(ctx context.Context, g *BrandGuidelines) error
}
