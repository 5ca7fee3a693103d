package engine

import (
	"context"
	"fmt"
)

// RodFetchFunc wraps the browser scraper. It is injected from main.go so
// that engine/ never imports scraper/.
type RodFetchFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)

// RodEngine renders pages in the shared headless browser.
type RodEngine struct {
	fetchFunc RodFetchFunc
}

// NewRodEngine creates a RodEngine around the browser callback.
func NewRodEngine(fetchFunc RodFetchFunc) *RodEngine {
	return &RodEngine{fetchFunc: fetchFunc}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("rod: fetchFunc not configured")
	}

	result, err := e.fetchFunc(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rod: %w", err)
	}
	result.EngineName = e.Name()
	return result, nil
}
