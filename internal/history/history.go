// Package history keeps the evaluations of a session, oldest first.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/dary/internal/domain"
	"github.com/samber/lo"
)

const (
	listKey    = "history"
	evalPrefix = "eval:"
)

// Store records GlobalScoreResults per session on top of a domain.Cache.
// The ordered list holds result ids; each result is stored under its own key
// so GET /evaluations/{id} is a single lookup.
type Store struct {
	cache domain.Cache
	cfg   domain.HistoryConfig
}

// NewStore creates a history store.
func NewStore(cache domain.Cache, cfg domain.HistoryConfig) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 200
	}
	return &Store{cache: cache, cfg: cfg}
}

// Record appends results to the session history in the given order.
func (s *Store) Record(ctx context.Context, sessionID string, results ...*domain.GlobalScoreResult) error {
	for _, result := range results {
		if result == nil {
			continue
		}
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result %s: %w", result.ID, err)
		}
		if err := s.cache.Set(ctx, sessionID, evalPrefix+result.ID, data, s.cfg.TTL); err != nil {
			return fmt.Errorf("failed to store result %s: %w", result.ID, err)
		}
		n, err := s.cache.Append(ctx, sessionID, listKey, []byte(result.ID), s.cfg.MaxEntries, s.cfg.TTL)
		if err != nil {
			return fmt.Errorf("failed to append to history: %w", err)
		}

		slog.Debug("history recorded",
			"session_id", sessionID,
			"evaluation_id", result.ID,
			"history_len", n,
		)
	}
	return nil
}

// List returns the session history, oldest first. Entries whose result has
// expired or been evicted are skipped.
func (s *Store) List(ctx context.Context, sessionID string) ([]*domain.GlobalScoreResult, error) {
	ids, err := s.cache.Range(ctx, sessionID, listKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	results := make([]*domain.GlobalScoreResult, 0, len(ids))
	for _, id := range ids {
		result, err := s.Get(ctx, sessionID, string(id))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Get returns one result of the session history.
func (s *Store) Get(ctx context.Context, sessionID, id string) (*domain.GlobalScoreResult, error) {
	data, err := s.cache.Get(ctx, sessionID, evalPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("failed to read result %s: %w", id, err)
	}
	if data == nil {
		return nil, fmt.Errorf("evaluation %s: %w", id, domain.ErrNotFound)
	}

	var result domain.GlobalScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", id, err)
	}
	return &result, nil
}

// Clear removes the session history and every result it references.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	ids, err := s.cache.Range(ctx, sessionID, listKey)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	for _, id := range lo.Uniq(idStrings(ids)) {
		if err := s.cache.Delete(ctx, sessionID, evalPrefix+id); err != nil {
			return fmt.Errorf("failed to delete result %s: %w", id, err)
		}
	}
	return s.cache.Delete(ctx, sessionID, listKey)
}

func idStrings(ids [][]byte) []string {
	return lo.Map(ids, func(id []byte, _ int) string { return string(id) })
}
