package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// AcceptFunc inspects a fetched page and returns a non-nil error when the
// page is not usable (for example an unrendered JavaScript shell), so the
// next engine is tried.
type AcceptFunc func(*FetchResult) error

// Dispatcher tries engines one after another, cheapest first, until one
// returns an acceptable page. Engines never run concurrently.
type Dispatcher struct {
	engines []Engine
	accept  AcceptFunc
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher. accept and memory may be nil.
func NewDispatcher(engines []Engine, accept AcceptFunc, memory *DomainMemory) *Dispatcher {
	return &Dispatcher{
		engines: engines,
		accept:  accept,
		memory:  memory,
	}
}

// Engines returns the engine names in escalation order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// Dispatch returns the first acceptable result. The engine remembered for
// the request's host goes first; the rest follow in configured order.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, fmt.Errorf("dispatcher: no engines configured")
	}

	host := extractHost(req.URL)
	remembered := ""
	if d.memory != nil {
		remembered = d.memory.Get(host)
	}

	var errs []error
	for _, eng := range d.order(remembered) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := eng.Fetch(ctx, req)
		if err == nil && d.accept != nil {
			if rejectErr := d.accept(result); rejectErr != nil {
				err = fmt.Errorf("%s: page rejected: %w", eng.Name(), rejectErr)
			}
		}
		if err != nil {
			slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
			if eng.Name() == remembered && d.memory != nil {
				d.memory.Delete(host)
			}
			errs = append(errs, err)
			continue
		}

		if d.memory != nil && eng.Name() != remembered {
			d.memory.Set(host, eng.Name())
			slog.Info("engine selected for host", "host", host, "engine", eng.Name())
		}
		result.EngineName = eng.Name()
		return result, nil
	}

	return nil, fmt.Errorf("dispatcher: all engines failed for %s: %w", req.URL, errors.Join(errs...))
}

func (d *Dispatcher) order(first string) []Engine {
	if first == "" {
		return d.engines
	}
	ordered := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		if e.Name() == first {
			ordered = append(ordered, e)
		}
	}
	for _, e := range d.engines {
		if e.Name() != first {
			ordered = append(ordered, e)
		}
	}
	return ordered
}

// extractHost parses the hostname from a URL string.
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
