package state

import (
	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/room"
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// Tracker 完成度跟踪器，把归位结果折算到对局状态上
type Tracker struct {
	rooms *room.Store
}

// NewTracker 创建完成度跟踪器
func NewTracker(rooms *room.Store) *Tracker {
	return &Tracker{rooms: rooms}
}

// OnPiecePlaced 登记一次归位，返回最新状态与是否恰好拼完
// 完成转换（isCompleted + endTime）在房间锁内一次性发生，每个房间只触发一次
func (t *Tracker) OnPiecePlaced(roomID string) (protocol.GameStateInfo, bool, error) {
	r := t.rooms.Get(roomID)
	if r == nil {
		return protocol.GameStateInfo{}, false, apperrors.ErrRoomNotFound
	}
	st, completed := r.RecordPlacement()
	return st, completed, nil
}

// Snapshot 只读获取对局状态
func (t *Tracker) Snapshot(roomID string) (protocol.GameStateInfo, error) {
	r := t.rooms.Get(roomID)
	if r == nil {
		return protocol.GameStateInfo{}, apperrors.ErrRoomNotFound
	}
	return r.StateInfo(), nil
}
