package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jitera-Sales/wire-sync/internal/backend"
	"github.com/Jitera-Sales/wire-sync/internal/models"
)

const (
	backendInfoKey = "backend:info"
	backendInfoTTL = 1 * time.Hour // Federation flag and version list change rarely
)

type CachedBackendInfoRepository struct {
	api    backend.BackendInfoAPI
	client *redis.Client
}

func NewCachedBackendInfoRepository(api backend.BackendInfoAPI, client *redis.Client) *CachedBackendInfoRepository {
	return &CachedBackendInfoRepository{api: api, client: client}
}

// GetBackendInfo serves from the Redis cache when possible and falls through
// to the backend on a miss. A cache write failure is not an error; the next
// call simply fetches again.
func (r *CachedBackendInfoRepository) GetBackendInfo(ctx context.Context) (models.BackendInfo, error) {
	data, err := r.client.Get(ctx, backendInfoKey).Result()
	if err == nil {
		var info models.BackendInfo
		if err := json.Unmarshal([]byte(data), &info); err == nil {
			return info, nil
		}
		// Corrupt cache entry: fall through and overwrite it.
	} else if err != redis.Nil {
		return models.BackendInfo{}, fmt.Errorf("failed to read backend info cache: %w", err)
	}

	info, err := r.api.GetBackendInfo(ctx)
	if err != nil {
		return models.BackendInfo{}, fmt.Errorf("failed to fetch backend info: %w", err)
	}

	if payload, err := json.Marshal(info); err == nil {
		r.client.Set(ctx, backendInfoKey, payload, backendInfoTTL)
	}

	return info, nil
}
