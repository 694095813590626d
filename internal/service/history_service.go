package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/config"
	"github.com/tryonlab/api/internal/model"
)

// HistoryService keeps the most recent try-on results per client in Redis
type HistoryService struct {
	redis    *redis.Client
	maxItems int
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(redisClient *redis.Client, cfg config.HistoryConfig, logger zerolog.Logger) *HistoryService {
	return &HistoryService{
		redis:    redisClient,
		maxItems: cfg.MaxItems,
		ttl:      cfg.TTL,
		logger:   logger.With().Str("component", "history").Logger(),
	}
}

func historyKey(clientID string) string {
	return fmt.Sprintf("tryon:history:%s", clientID)
}

// Add prepends an entry, trimming the list to the configured size.
func (s *HistoryService) Add(ctx context.Context, clientID string, entry model.HistoryEntry) (*model.HistoryEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to encode history entry", err)
	}

	key := historyKey(clientID)
	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(s.maxItems-1))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to save history", err)
	}

	return &entry, nil
}

// List returns the stored entries, latest first.
func (s *HistoryService) List(ctx context.Context, clientID string) ([]model.HistoryEntry, error) {
	raw, err := s.redis.LRange(ctx, historyKey(clientID), 0, -1).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to load history", err)
	}

	items := make([]model.HistoryEntry, 0, len(raw))
	for _, r := range raw {
		var entry model.HistoryEntry
		if err := json.Unmarshal([]byte(r), &entry); err != nil {
			s.logger.Warn().Err(err).Str("client_id", clientID).Msg("skipping corrupt history entry")
			continue
		}
		items = append(items, entry)
	}
	return items, nil
}

// Clear removes all entries of the client.
func (s *HistoryService) Clear(ctx context.Context, clientID string) error {
	if err := s.redis.Del(ctx, historyKey(clientID)).Err(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "Failed to clear history", err)
	}
	return nil
}
