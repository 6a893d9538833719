package room

import (
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// Snapshot 生成一致的房间快照，供状态接口与 Redis 持久化使用
// 在读锁内完成深拷贝，不会暴露半应用的变更
func (r *Room) Snapshot() *protocol.RoomStatusResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &protocol.RoomStatusResponse{
		RoomID:      r.ID,
		Players:     r.playersInfo(),
		Puzzle:      r.puzzleInfo(),
		GameState:   r.stateInfoPtr(),
		IsCompleted: r.State.IsCompleted,
		CreatedAt:   r.CreatedAt,
	}
}

// PlayersInfo 玩家快照列表
func (r *Room) PlayersInfo() []*protocol.PlayerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playersInfo()
}

// StateInfo 对局状态快照
func (r *Room) StateInfo() protocol.GameStateInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stateInfo()
}

// PuzzleInfo 拼图快照
func (r *Room) PuzzleInfo() *protocol.PuzzleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.puzzleInfo()
}

// playersInfo 调用方需持有 mu
func (r *Room) playersInfo() []*protocol.PlayerInfo {
	players := make([]*protocol.PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		info := &protocol.PlayerInfo{
			ID:          p.ID,
			Name:        p.Name,
			IsConnected: p.IsConnected,
		}
		if p.Cursor != nil {
			cursor := *p.Cursor
			info.Cursor = &cursor
		}
		players = append(players, info)
	}
	return players
}

// puzzleInfo 调用方需持有 mu
func (r *Room) puzzleInfo() *protocol.PuzzleInfo {
	pieces := make([]*protocol.PieceInfo, 0, len(r.Puzzle.Pieces))
	for _, piece := range r.Puzzle.Pieces {
		pieces = append(pieces, &protocol.PieceInfo{
			ID:       piece.ID,
			Row:      piece.Row,
			Col:      piece.Col,
			CorrectX: piece.CorrectX,
			CorrectY: piece.CorrectY,
			CurrentX: piece.CurrentX,
			CurrentY: piece.CurrentY,
			IsPlaced: piece.IsPlaced,
			IsLocked: piece.IsLocked,
			LockedBy: piece.LockedBy,
			Shape:    piece.Shape,
		})
	}
	return &protocol.PuzzleInfo{
		ID:         r.Puzzle.ID,
		ImageURL:   r.Puzzle.ImageURL,
		Width:      r.Puzzle.Width,
		Height:     r.Puzzle.Height,
		PieceCount: r.Puzzle.PieceCount,
		Difficulty: string(r.Puzzle.Difficulty),
		Pieces:     pieces,
	}
}

// stateInfo 调用方需持有 mu
func (r *Room) stateInfo() protocol.GameStateInfo {
	info := protocol.GameStateInfo{
		CompletedPieces:      r.State.CompletedPieces,
		TotalPieces:          r.State.TotalPieces,
		CompletionPercentage: r.State.CompletionPercentage(),
		IsCompleted:          r.State.IsCompleted,
		StartTime:            r.State.StartTime,
	}
	if r.State.EndTime != nil {
		end := *r.State.EndTime
		info.EndTime = &end
	}
	return info
}

func (r *Room) stateInfoPtr() *protocol.GameStateInfo {
	info := r.stateInfo()
	return &info
}
