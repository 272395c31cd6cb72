package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chainHTTP/internal/config"
	"chainHTTP/internal/output"
	"chainHTTP/internal/parser"
	"chainHTTP/internal/probe"
	"chainHTTP/internal/tech"
)

// HopProber performs a single request without following redirects
type HopProber interface {
	Probe(ctx context.Context, target string) (*probe.HopResult, error)
}

// Resolver follows redirect chains one hop at a time. It is safe for
// concurrent use; each resolution owns its own trail.
type Resolver struct {
	prober HopProber
	config *config.Config
	tech   *tech.Detector
}

// New creates a Resolver. The technology database is only loaded when
// tech detection is enabled.
func New(cfg *config.Config, prober HopProber) (*Resolver, error) {
	r := &Resolver{
		prober: prober,
		config: cfg,
	}

	if cfg.TechDetect {
		detector, err := tech.NewDetector()
		if err != nil {
			return nil, err
		}
		r.tech = detector
	}

	return r, nil
}

// Resolve normalizes raw and follows its redirect chain to a terminal
// response. Invalid input is returned as *parser.InvalidURLError; every
// other failure is a *CheckError naming the hop that failed.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*output.ChainResult, error) {
	normalized, err := parser.Normalize(raw)
	if err != nil {
		return nil, err
	}

	if r.config.ChainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ChainTimeout)
		defer cancel()
	}

	result, err := r.resolveHop(ctx, normalized, nil, 0)
	if err != nil {
		r.config.Logger.Debug("chain resolution failed",
			"url", normalized,
			"kind", KindOf(err),
			"error", err,
		)
		return nil, err
	}

	result.RequestID = uuid.NewString()
	result.RequestedURL = normalized

	r.config.Logger.Debug("chain resolved",
		"request_id", result.RequestID,
		"url", normalized,
		"final_url", result.FinalURL(),
		"redirects", result.NumberOfRedirects,
		"status_code", result.StatusCode,
	)
	return result, nil
}

// resolveHop resolves one URL given the URLs already visited and the
// number of redirects followed to reach it
func (r *Resolver) resolveHop(ctx context.Context, raw string, trail []string, hop int) (*output.ChainResult, error) {
	current, err := parser.Normalize(raw)
	if err != nil {
		return nil, err
	}

	key := parser.LoopKey(current)
	for _, visited := range trail {
		if parser.LoopKey(visited) == key {
			return nil, &CheckError{URL: current, Hop: hop, Err: ErrRedirectLoop}
		}
	}

	if hop > r.config.MaxRedirects {
		return nil, &CheckError{
			URL: current,
			Hop: hop,
			Err: fmt.Errorf("%w: limit is %d", ErrTooManyRedirects, r.config.MaxRedirects),
		}
	}

	hopResult, err := r.prober.Probe(ctx, current)
	if err != nil {
		return nil, &CheckError{URL: current, Hop: hop, Err: err}
	}

	record := r.buildHopRecord(current, hopResult, trail)

	if !probe.IsRedirect(hopResult.StatusCode) {
		return terminalResult(current, record), nil
	}

	location, ok := hopResult.Location()
	if !ok || strings.TrimSpace(location) == "" {
		return nil, &CheckError{URL: current, Hop: hop, Err: ErrMissingLocation}
	}

	next, err := parser.ResolveLocation(current, location)
	if err != nil {
		return nil, &parser.InvalidURLError{Input: location, Reason: "unresolvable redirect location", Err: err}
	}

	// Full slice expression so sibling resolutions never share a backing array
	childTrail := append(trail[:len(trail):len(trail)], current)
	child, err := r.resolveHop(ctx, next, childTrail, hop+1)
	if err != nil {
		return nil, err
	}

	return fold(current, record, buildRedirect(current, next, hopResult.StatusCode, location), child), nil
}
