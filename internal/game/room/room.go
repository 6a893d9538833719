package room

import (
	"math"
	"sync"
	"time"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/puzzle"
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// Player 房间中的玩家
type Player struct {
	ID          string
	Name        string
	IsConnected bool
	Cursor      *protocol.Position // 最后上报的光标位置，可能为空
	JoinedAt    time.Time
}

// GameState 对局完成度状态
type GameState struct {
	CompletedPieces int
	TotalPieces     int
	IsCompleted     bool
	StartTime       time.Time
	EndTime         *time.Time
}

// CompletionPercentage 完成百分比
func (gs *GameState) CompletionPercentage() float64 {
	if gs.TotalPieces == 0 {
		return 0
	}
	return float64(gs.CompletedPieces) / float64(gs.TotalPieces) * 100
}

// Room 拼图房间。房间内所有可变状态（玩家、拼图块、完成度）
// 由 mu 串行化，跨房间操作互不阻塞
type Room struct {
	ID        string
	Players   []*Player // 按加入顺序，容量上限见 Store.maxPlayers
	Puzzle    *puzzle.Puzzle
	State     GameState
	CreatedAt time.Time

	lastActive time.Time // 最后一次变更时间，用于空闲回收
	mu         sync.RWMutex
}

// touch 记录活跃时间，调用方需持有 mu
func (r *Room) touch() {
	r.lastActive = time.Now()
}

// player 按 ID 查找玩家，调用方需持有 mu
func (r *Room) player(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// HasPlayer 玩家是否在房间中
func (r *Room) HasPlayer(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.player(playerID) != nil
}

// MarkDisconnected 标记玩家离线，保留座位以便重连
func (r *Room) MarkDisconnected(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.player(playerID)
	if p == nil {
		return apperrors.ErrNotInRoom
	}
	p.IsConnected = false
	r.touch()
	return nil
}

// RemovePlayer 从房间移除玩家，返回剩余人数
func (r *Room) RemovePlayer(playerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.Players {
		if p.ID == playerID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			r.touch()
			return len(r.Players), nil
		}
	}
	return len(r.Players), apperrors.ErrNotInRoom
}

// SetCursor 更新玩家光标位置
func (r *Room) SetCursor(playerID string, x, y float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.player(playerID)
	if p == nil {
		return apperrors.ErrNotInRoom
	}
	p.Cursor = &protocol.Position{X: x, Y: y}
	r.touch()
	return nil
}

// LockPiece 尝试为玩家锁定拼图块（check-and-set 原子执行）
// 已归位或已被他人锁定时失败
func (r *Room) LockPiece(pieceID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.player(playerID) == nil {
		return apperrors.ErrNotInRoom
	}
	piece := r.Puzzle.Piece(pieceID)
	if piece == nil {
		return apperrors.ErrPieceNotFound
	}
	if piece.IsPlaced {
		return apperrors.ErrPiecePlaced
	}
	if piece.IsLocked && piece.LockedBy != playerID {
		return apperrors.ErrPieceLocked
	}

	piece.IsLocked = true
	piece.LockedBy = playerID
	r.touch()
	return nil
}

// MovePiece 移动拼图块，仅锁持有者可操作
func (r *Room) MovePiece(pieceID, playerID string, x, y float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	piece := r.Puzzle.Piece(pieceID)
	if piece == nil {
		return apperrors.ErrPieceNotFound
	}
	if piece.IsPlaced {
		return apperrors.ErrPiecePlaced
	}
	if !piece.IsLocked || piece.LockedBy != playerID {
		return apperrors.ErrLockMismatch
	}

	piece.CurrentX = x
	piece.CurrentY = y
	r.touch()
	return nil
}

// DropPiece 放下拼图块。落点在容差内则吸附归位并永久锁定，
// 否则停在落点并释放锁。返回是否归位
func (r *Room) DropPiece(pieceID, playerID string, x, y, tolerance float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	piece := r.Puzzle.Piece(pieceID)
	if piece == nil {
		return false, apperrors.ErrPieceNotFound
	}
	if piece.IsPlaced {
		return false, apperrors.ErrPiecePlaced
	}
	if !piece.IsLocked || piece.LockedBy != playerID {
		return false, apperrors.ErrLockMismatch
	}

	r.touch()
	if math.Hypot(x-piece.CorrectX, y-piece.CorrectY) <= tolerance {
		// 归位：吸附到目标位置，之后不可再移动
		piece.CurrentX = piece.CorrectX
		piece.CurrentY = piece.CorrectY
		piece.IsPlaced = true
		piece.IsLocked = false
		piece.LockedBy = ""
		return true, nil
	}

	piece.CurrentX = x
	piece.CurrentY = y
	piece.IsLocked = false
	piece.LockedBy = ""
	return false, nil
}

// ReleaseAllFor 释放玩家持有的所有拼图块锁（不改变位置），
// 返回被释放的拼图块 ID。断线清理的必经路径，防止锁被永久占用
func (r *Room) ReleaseAllFor(playerID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []string
	for _, piece := range r.Puzzle.Pieces {
		if piece.IsLocked && piece.LockedBy == playerID {
			piece.IsLocked = false
			piece.LockedBy = ""
			released = append(released, piece.ID)
		}
	}
	if len(released) > 0 {
		r.touch()
	}
	return released
}

// RecordPlacement 登记一次归位。completedPieces 单调递增不超过总数；
// 拼完时一次性置 isCompleted 并落 endTime
func (r *Room) RecordPlacement() (protocol.GameStateInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	justCompleted := false
	if r.State.CompletedPieces < r.State.TotalPieces {
		r.State.CompletedPieces++
	}
	if r.State.CompletedPieces == r.State.TotalPieces && !r.State.IsCompleted {
		now := time.Now()
		r.State.IsCompleted = true
		r.State.EndTime = &now
		justCompleted = true
	}
	r.touch()
	return r.stateInfo(), justCompleted
}

// IsCompleted 对局是否完成
func (r *Room) IsCompleted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State.IsCompleted
}

// idle 判断房间是否可回收：所有玩家离线（或无人）且超过空闲时限
func (r *Room) idle(timeout time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.Players {
		if p.IsConnected {
			return false
		}
	}
	return time.Since(r.lastActive) > timeout
}
