// Package cache читает настройки спенд-контроля и скользящие агрегаты из key-value хранилища.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/spendcontrol-system/internal/model"
)

const (
	controlKeyPrefix   = "SPEND-CONTROL:SYNCTERA-ID:"
	aggregateKeyPrefix = "SPEND-AGGREGATE:SYNCTERA-ID:"
)

// Commander описывает минимальный контракт redis-клиента, используемый читателем.
type Commander interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// Reader выполняет чтение состояния спенд-контроля по карте.
// Хранилище заполняется внешними процессами; читатель никогда в него не пишет.
type Reader struct {
	client Commander
}

// NewReader создаёт читатель состояния поверх указанного redis-клиента.
func NewReader(client Commander) *Reader {
	return &Reader{client: client}
}

// ReadState возвращает настроенный лимит и скользящие агрегаты по карте одним запросом.
// Отсутствие значения в хранилище — осмысленное состояние и возвращается как nil,
// а не как ошибка; ошибкой считаются только сбой хранилища и некорректный JSON.
func (r *Reader) ReadState(ctx context.Context, cardID string) (*model.SpendControl, *model.SpendAggregate, error) {
	vals, err := r.client.MGet(ctx, controlKeyPrefix+cardID, aggregateKeyPrefix+cardID).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("mget card state: %w", err)
	}
	if len(vals) != 2 {
		return nil, nil, fmt.Errorf("mget card state: got %d values, want 2", len(vals))
	}

	control, err := decodeControl(vals[0])
	if err != nil {
		return nil, nil, fmt.Errorf("spend control for card %s: %w", cardID, err)
	}

	aggregate, err := decodeAggregate(vals[1])
	if err != nil {
		return nil, nil, fmt.Errorf("spend aggregate for card %s: %w", cardID, err)
	}

	return control, aggregate, nil
}

func decodeControl(raw interface{}) (*model.SpendControl, error) {
	data, ok, err := rawValue(raw)
	if err != nil || !ok {
		return nil, err
	}

	var control model.SpendControl
	if err := json.Unmarshal(data, &control); err != nil {
		return nil, fmt.Errorf("decode cached value: %w", err)
	}
	return &control, nil
}

func decodeAggregate(raw interface{}) (*model.SpendAggregate, error) {
	data, ok, err := rawValue(raw)
	if err != nil || !ok {
		return nil, err
	}

	var aggregate model.SpendAggregate
	if err := json.Unmarshal(data, &aggregate); err != nil {
		return nil, fmt.Errorf("decode cached value: %w", err)
	}
	return &aggregate, nil
}

func rawValue(raw interface{}) ([]byte, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, false, fmt.Errorf("unexpected cached value type %T", raw)
	}
	return []byte(s), true, nil
}
