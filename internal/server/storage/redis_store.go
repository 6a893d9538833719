package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/puzzle-together/internal/protocol"
)

const (
	// Redis key 前缀
	roomKeyPrefix = "room:"

	// 房间快照过期时间。快照只用于线上巡检，不参与恢复
	roomExpiration = 2 * time.Hour
)

// RedisStore 房间快照存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// SaveRoom 保存房间快照
func (rs *RedisStore) SaveRoom(ctx context.Context, roomID string, data *protocol.RoomStatusResponse) error {
	if data == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化房间快照失败: %w", err)
	}

	key := roomKeyPrefix + roomID
	return rs.client.Set(ctx, key, jsonData, roomExpiration).Err()
}

// LoadRoom 读取房间快照（仅用于巡检，不存在返回 nil）
func (rs *RedisStore) LoadRoom(ctx context.Context, roomID string) (*protocol.RoomStatusResponse, error) {
	key := roomKeyPrefix + roomID
	data, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 快照不存在
		}
		return nil, err
	}

	var snapshot protocol.RoomStatusResponse
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("反序列化房间快照失败: %w", err)
	}

	return &snapshot, nil
}

// DeleteRoom 删除房间快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, roomID string) error {
	key := roomKeyPrefix + roomID
	return rs.client.Del(ctx, key).Err()
}

// GetAllRoomIDs 获取所有有快照的房间号
func (rs *RedisStore) GetAllRoomIDs(ctx context.Context) ([]string, error) {
	keys, err := rs.client.Keys(ctx, roomKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(keys))
	for i, key := range keys {
		ids[i] = key[len(roomKeyPrefix):]
	}
	return ids, nil
}
