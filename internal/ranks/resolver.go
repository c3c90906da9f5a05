package ranks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"slipscan/internal/logging"
	"slipscan/internal/replay"
)

// RankResult is one finished lookup, delivered asynchronously.
type RankResult struct {
	ConnectCode string
	Rank        string
}

// Resolver turns connect codes into display ranks, caching results for the
// lifetime of the process. Failed lookups cache as RankUnknown so a flaky
// endpoint never causes repeat traffic for the same code.
type Resolver struct {
	client *Client
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]string
	// inflight dedupes concurrent lookups for the same code; waiters block on
	// the channel until the first lookup resolves.
	inflight map[string]chan struct{}
}

// NewResolver wraps a client with caching and async delivery.
func NewResolver(client *Client, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:   client,
		logger:   logging.NewComponentLogger(logger, "ranks"),
		cache:    make(map[string]string),
		inflight: make(map[string]chan struct{}),
	}
}

// Resolve returns the display rank for a connect code, fetching it on first
// use. Errors other than context cancellation resolve to RankUnknown and are
// cached as such.
func (r *Resolver) Resolve(ctx context.Context, connectCode string) string {
	code := strings.ToUpper(strings.TrimSpace(connectCode))
	if code == "" {
		return RankUnknown
	}

	for {
		r.mu.Lock()
		if rank, ok := r.cache[code]; ok {
			r.mu.Unlock()
			return rank
		}
		if wait, busy := r.inflight[code]; busy {
			r.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return RankUnknown
			}
		}
		done := make(chan struct{})
		r.inflight[code] = done
		r.mu.Unlock()

		rank := r.fetch(ctx, code)

		r.mu.Lock()
		if ctx.Err() == nil {
			r.cache[code] = rank
		}
		delete(r.inflight, code)
		close(done)
		r.mu.Unlock()
		return rank
	}
}

func (r *Resolver) fetch(ctx context.Context, code string) string {
	profile, err := r.client.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNoProfile) {
			return "Unranked"
		}
		r.logger.Debug("rank lookup failed",
			logging.String(logging.FieldConnectCode, code),
			logging.Error(err))
		return RankUnknown
	}
	return DisplayRank(profile)
}

// LookupAsync resolves a code in the background and delivers the result on
// the returned channel. It never blocks the caller; the channel is buffered
// and closed after the single result.
func (r *Resolver) LookupAsync(ctx context.Context, connectCode string) <-chan RankResult {
	out := make(chan RankResult, 1)
	go func() {
		defer close(out)
		out <- RankResult{
			ConnectCode: strings.ToUpper(strings.TrimSpace(connectCode)),
			Rank:        r.Resolve(ctx, connectCode),
		}
	}()
	return out
}

// Annotate resolves ranks for every human player of a record and writes them
// through the record's setter. Lookups for distinct codes run concurrently.
func (r *Resolver) Annotate(ctx context.Context, record *replay.MatchRecord) {
	if record == nil {
		return
	}
	var wg sync.WaitGroup
	for _, p := range record.Players {
		if p.IsCPU || strings.TrimSpace(p.ConnectCode) == "" {
			continue
		}
		wg.Add(1)
		go func(port int, code string) {
			defer wg.Done()
			record.SetPlayerRank(port, r.Resolve(ctx, code))
		}(p.Port, p.ConnectCode)
	}
	wg.Wait()
}
