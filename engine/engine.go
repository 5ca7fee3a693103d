package engine

import (
	"context"
	"time"
)

// Engine fetches the HTML of one page.
type Engine interface {
	// Name returns the engine identifier ("http" or "rod").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	EngineName string
}
