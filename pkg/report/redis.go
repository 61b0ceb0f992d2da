package report

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/renderstack/maestro/pkg/models"
)

const defaultHistoryKey = "maestro:history"

// RedisHistory stores the execution history in a capped Redis list, newest
// first. Suitable for service deployments where the process restarts.
type RedisHistory struct {
	client redis.UniversalClient
	key    string
	maxLen int64
}

func NewRedisHistory(client redis.UniversalClient, maxLen int64) *RedisHistory {
	if maxLen <= 0 {
		maxLen = DefaultHistorySize
	}

	return &RedisHistory{client: client, key: defaultHistoryKey, maxLen: maxLen}
}

func (h *RedisHistory) Append(ctx context.Context, result *models.WorkflowResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding history entry: %w", err)
	}

	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, h.key, payload)
	pipe.LTrim(ctx, h.key, 0, h.maxLen-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending history entry: %w", err)
	}

	return nil
}

func (h *RedisHistory) Recent(ctx context.Context, n int) ([]*models.WorkflowResult, error) {
	if n <= 0 {
		n = int(h.maxLen)
	}

	raw, err := h.client.LRange(ctx, h.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	out := make([]*models.WorkflowResult, 0, len(raw))

	for _, entry := range raw {
		var result models.WorkflowResult
		if err := json.Unmarshal([]byte(entry), &result); err != nil {
			return nil, fmt.Errorf("decoding history entry: %w", err)
		}

		out = append(out, &result)
	}

	return out, nil
}

func (h *RedisHistory) Find(ctx context.Context, workflowID string) (*models.WorkflowResult, error) {
	entries, err := h.Recent(ctx, 0)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.WorkflowID == workflowID {
			return entry, nil
		}
	}

	return nil, ErrNotFound
}
