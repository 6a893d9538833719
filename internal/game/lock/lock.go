package lock

import (
	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/room"
)

// Manager 拼图块锁管理器，串行化多人对同一块的并发操作
// 状态存在 RoomStore 拥有的房间对象上，这里只做定位与归位判定策略
type Manager struct {
	rooms     *room.Store
	tolerance float64 // 归位判定半径（像素）
}

// NewManager 创建锁管理器
func NewManager(rooms *room.Store, tolerance float64) *Manager {
	return &Manager{rooms: rooms, tolerance: tolerance}
}

// Pickup 拿起拼图块。两人抢同一块时恰好一人成功，
// 失败方收到 ErrPieceLocked，应放弃本地乐观移动
func (m *Manager) Pickup(roomID, pieceID, playerID string) error {
	r := m.rooms.Get(roomID)
	if r == nil {
		return apperrors.ErrRoomNotFound
	}
	return r.LockPiece(pieceID, playerID)
}

// Move 拖动拼图块，仅锁持有者生效
// ErrLockMismatch 属于并发下的正常结果，客户端回弹到服务端位置即可
func (m *Manager) Move(roomID, pieceID, playerID string, x, y float64) error {
	r := m.rooms.Get(roomID)
	if r == nil {
		return apperrors.ErrRoomNotFound
	}
	return r.MovePiece(pieceID, playerID, x, y)
}

// Drop 放下拼图块，返回是否在容差内归位
// 归位的块永久不可再操作，未归位的块落在原地并释放锁
func (m *Manager) Drop(roomID, pieceID, playerID string, x, y float64) (bool, error) {
	r := m.rooms.Get(roomID)
	if r == nil {
		return false, apperrors.ErrRoomNotFound
	}
	return r.DropPiece(pieceID, playerID, x, y, m.tolerance)
}

// ReleaseAllFor 释放玩家持有的全部锁，返回释放的拼图块 ID
// 断线处理的强制清理步骤，避免锁随玩家消失
func (m *Manager) ReleaseAllFor(roomID, playerID string) []string {
	r := m.rooms.Get(roomID)
	if r == nil {
		return nil
	}
	return r.ReleaseAllFor(playerID)
}

// Tolerance 当前归位判定半径
func (m *Manager) Tolerance() float64 {
	return m.tolerance
}
