package scanner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"slipscan/internal/logging"
	"slipscan/internal/replay"
	"slipscan/internal/scancache"
)

// dispatch runs the walker and a bounded worker pool over a shared paths
// channel. It returns non-nil only when the context is cancelled; per-file
// failures are folded into the collector.
func (s *Scanner) dispatch(ctx context.Context, root string, c *collector) error {
	paths := make(chan string)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(paths)
		visited := make(map[string]struct{})
		return s.walk(ctx, root, visited, c, paths)
	})

	for i := 0; i < s.opts.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case path, ok := <-paths:
					if !ok {
						return nil
					}
					s.processFile(path, c)
				}
			}
		})
	}

	return g.Wait()
}

// processFile resolves one candidate file: cache hit, fresh decode, or
// failure. Decode failures with a cacheable kind are remembered so later
// scans skip the file until it changes.
func (s *Scanner) processFile(path string, c *collector) {
	var fp scancache.Fingerprint
	if s.opts.Cache != nil {
		var err error
		fp, err = scancache.FingerprintOf(path)
		if err == nil {
			if entry, ok := s.opts.Cache.Lookup(path, fp); ok {
				if entry.Record != nil {
					c.record(path, entry.Record, true)
				} else {
					c.fail(path, entry.Failure.Kind, entry.Failure.Message, true)
				}
				return
			}
		}
	}

	record, err := s.opts.Decoder.Decode(path)
	if err != nil {
		kind := replay.KindOf(err)
		s.logger.Debug("decode failed",
			logging.String(logging.FieldPath, path),
			logging.String("kind", string(kind)),
			logging.Error(err))
		if s.opts.Cache != nil {
			s.opts.Cache.StoreFailure(path, fp, kind, err.Error())
		}
		c.fail(path, kind, err.Error(), false)
		return
	}

	if s.opts.Cache != nil {
		s.opts.Cache.StoreRecord(path, fp, record)
	}
	c.record(path, record, false)
}
