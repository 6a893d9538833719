package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/puzzle-together/internal/protocol"
)

const (
	// Redis key
	playerStatsKey = "player:stats:"
	fastestKey     = "board:fastest" // 最快完成时间榜（毫秒，越小越前）
)

// PlayerStats 玩家统计数据
type PlayerStats struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`

	Solves       int   `json:"solves"`         // 完成拼图次数
	TotalPieces  int   `json:"total_pieces"`   // 参与完成的拼图块总数
	BestTimeMs   int64 `json:"best_time_ms"`   // 最快完成用时（毫秒），0 表示尚无记录
	LastSolvedAt int64 `json:"last_solved_at"` // 最后完成时间
	CreatedAt    int64 `json:"created_at"`     // 首次完成时间
}

// FastestEntry 最快完成榜条目
type FastestEntry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	BestTimeMs int64  `json:"best_time_ms"`
}

// CompletionStats 完成记录管理器
type CompletionStats struct {
	redis *redis.Client
}

// NewCompletionStats 创建完成记录管理器
func NewCompletionStats(client *redis.Client) *CompletionStats {
	return &CompletionStats{redis: client}
}

// GetPlayerStats 获取玩家统计，不存在返回 nil
func (cs *CompletionStats) GetPlayerStats(ctx context.Context, playerID string) (*PlayerStats, error) {
	key := playerStatsKey + playerID
	data, err := cs.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stats PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// savePlayerStats 保存玩家统计
func (cs *CompletionStats) savePlayerStats(ctx context.Context, stats *PlayerStats) error {
	key := playerStatsKey + stats.PlayerID
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return cs.redis.Set(ctx, key, data, 0).Err()
}

// RecordCompletion 登记一次拼图完成：更新房间内每位玩家的统计与最快榜
func (cs *CompletionStats) RecordCompletion(ctx context.Context, roomID string, players []*protocol.PlayerInfo, totalPieces int, duration time.Duration) error {
	now := time.Now().Unix()
	ms := duration.Milliseconds()

	for _, player := range players {
		stats, err := cs.GetPlayerStats(ctx, player.ID)
		if err != nil {
			return err
		}
		if stats == nil {
			stats = &PlayerStats{
				PlayerID:   player.ID,
				PlayerName: player.Name,
				CreatedAt:  now,
			}
		}

		stats.PlayerName = player.Name
		stats.Solves++
		stats.TotalPieces += totalPieces
		stats.LastSolvedAt = now
		if stats.BestTimeMs == 0 || ms < stats.BestTimeMs {
			stats.BestTimeMs = ms
		}

		if err := cs.savePlayerStats(ctx, stats); err != nil {
			return err
		}

		// 最快榜只保留玩家的最好成绩
		if err := cs.redis.ZAdd(ctx, fastestKey, redis.Z{
			Score:  float64(stats.BestTimeMs),
			Member: player.ID,
		}).Err(); err != nil {
			return err
		}
	}
	return nil
}

// GetFastest 获取最快完成榜前 limit 名
func (cs *CompletionStats) GetFastest(ctx context.Context, limit int) ([]FastestEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	ids, err := cs.redis.ZRange(ctx, fastestKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]FastestEntry, 0, len(ids))
	for i, id := range ids {
		stats, err := cs.GetPlayerStats(ctx, id)
		if err != nil {
			return nil, err
		}
		if stats == nil {
			continue
		}
		entries = append(entries, FastestEntry{
			Rank:       i + 1,
			PlayerID:   stats.PlayerID,
			PlayerName: stats.PlayerName,
			BestTimeMs: stats.BestTimeMs,
		})
	}
	return entries, nil
}
