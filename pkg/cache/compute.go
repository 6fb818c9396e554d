package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"watergrid/pkg/domain"
)

// ComputeCache специализированный кэш для результатов расчёта сети.
// Ключи строятся из хеша среза, поэтому любое изменение сети
// автоматически даёт промах.
type ComputeCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedFlow кэшированный результат распространения потока
type CachedFlow struct {
	Flow       domain.FlowResult `json:"flow"`
	ComputedAt time.Time         `json:"computed_at"`
}

// CachedSupply кэшированный результат распределения воды
type CachedSupply struct {
	Supply     domain.SupplyOverview `json:"supply"`
	ComputedAt time.Time             `json:"computed_at"`
}

// NewComputeCache создаёт кэш результатов расчёта
func NewComputeCache(cache Cache, defaultTTL time.Duration) *ComputeCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &ComputeCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// GetFlow получает кэшированный результат потока по хешу среза
func (cc *ComputeCache) GetFlow(ctx context.Context, snapshotHash string) (*domain.FlowResult, bool, error) {
	key := BuildFlowKey(snapshotHash)

	data, err := cc.cache.Get(ctx, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var cached CachedFlow
	if err := json.Unmarshal(data, &cached); err != nil {
		// Повреждённый кэш — удаляем, ошибку удаления игнорируем намеренно
		_ = cc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &cached.Flow, true, nil
}

// SetFlow сохраняет результат потока в кэш
func (cc *ComputeCache) SetFlow(ctx context.Context, snapshotHash string, result domain.FlowResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cc.defaultTTL
	}

	data, err := json.Marshal(CachedFlow{
		Flow:       result,
		ComputedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	return cc.cache.Set(ctx, BuildFlowKey(snapshotHash), data, ttl)
}

// GetSupply получает кэшированный результат распределения по хешу среза
func (cc *ComputeCache) GetSupply(ctx context.Context, snapshotHash string) (*domain.SupplyOverview, bool, error) {
	key := BuildSupplyKey(snapshotHash)

	data, err := cc.cache.Get(ctx, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var cached CachedSupply
	if err := json.Unmarshal(data, &cached); err != nil {
		_ = cc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &cached.Supply, true, nil
}

// SetSupply сохраняет результат распределения в кэш
func (cc *ComputeCache) SetSupply(ctx context.Context, snapshotHash string, overview domain.SupplyOverview, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cc.defaultTTL
	}

	data, err := json.Marshal(CachedSupply{
		Supply:     overview,
		ComputedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	return cc.cache.Set(ctx, BuildSupplyKey(snapshotHash), data, ttl)
}

// InvalidateSnapshot удаляет все результаты для конкретного среза
func (cc *ComputeCache) InvalidateSnapshot(ctx context.Context, snapshotHash string) error {
	for _, pattern := range []string{
		fmt.Sprintf("flow:%s*", snapshotHash),
		fmt.Sprintf("supply:%s*", snapshotHash),
	} {
		if _, err := cc.cache.DeleteByPattern(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateAll удаляет все кэшированные результаты расчётов
func (cc *ComputeCache) InvalidateAll(ctx context.Context) (int64, error) {
	flowCount, err := cc.cache.DeleteByPattern(ctx, "flow:*")
	if err != nil {
		return flowCount, err
	}

	supplyCount, err := cc.cache.DeleteByPattern(ctx, "supply:*")
	return flowCount + supplyCount, err
}
