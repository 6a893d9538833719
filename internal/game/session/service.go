package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/events"
	"github.com/palemoky/puzzle-together/internal/game/lock"
	"github.com/palemoky/puzzle-together/internal/game/room"
	"github.com/palemoky/puzzle-together/internal/game/state"
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// CompletionRecorder 完成记录落库（排行榜），尽力而为
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, roomID string, players []*protocol.PlayerInfo, totalPieces int, duration time.Duration) error
}

// Service 同步协议的编排层：客户端动作先经校验与应用，
// 再追加到房间事件日志，其他客户端通过游标轮询重放
type Service struct {
	rooms   *room.Store
	locks   *lock.Manager
	events  *events.Log
	tracker *state.Tracker
	stats   CompletionRecorder // 可为 nil
}

// NewService 创建同步服务
func NewService(rooms *room.Store, locks *lock.Manager, eventLog *events.Log, tracker *state.Tracker, stats CompletionRecorder) *Service {
	// 房间回收时一并清空其事件日志，关闭流式订阅者
	rooms.OnEvict(eventLog.Purge)
	return &Service{
		rooms:   rooms,
		locks:   locks,
		events:  eventLog,
		tracker: tracker,
		stats:   stats,
	}
}

// CreateRoom 创建房间
func (s *Service) CreateRoom(playerName, puzzleImage, difficulty string) (*protocol.CreateRoomResponse, error) {
	r, player, err := s.rooms.CreateRoom(playerName, puzzleImage, difficulty)
	if err != nil {
		return nil, err
	}

	s.events.Append(r.ID, player.ID, protocol.EventPlayerJoined, map[string]any{
		"playerId":   player.ID,
		"playerName": player.Name,
	})

	return &protocol.CreateRoomResponse{
		RoomID:   r.ID,
		PlayerID: player.ID,
		PuzzleID: r.Puzzle.ID,
	}, nil
}

// JoinRoom 加入房间
func (s *Service) JoinRoom(roomID, playerName string) (*protocol.JoinRoomResponse, error) {
	r, player, err := s.rooms.JoinRoom(roomID, playerName)
	if err != nil {
		return nil, err
	}

	s.events.Append(roomID, player.ID, protocol.EventPlayerJoined, map[string]any{
		"playerId":   player.ID,
		"playerName": player.Name,
	})

	st := r.StateInfo()
	return &protocol.JoinRoomResponse{
		PlayerID:  player.ID,
		Puzzle:    r.PuzzleInfo(),
		GameState: &st,
	}, nil
}

// Status 房间状态快照
func (s *Service) Status(roomID string) (*protocol.RoomStatusResponse, error) {
	return s.rooms.Snapshot(roomID)
}

// Poll 游标轮询：返回 lastEventID 之后、非本人产生的事件
func (s *Service) Poll(roomID, playerID, lastEventID string) ([]*protocol.GameEvent, error) {
	if s.rooms.Get(roomID) == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	return s.events.Since(roomID, playerID, lastEventID), nil
}

// PurgeEvents 清空房间事件日志（管理操作）
func (s *Service) PurgeEvents(roomID string) {
	s.events.Purge(roomID)
}

// LeaveRoom 玩家显式离开：释放锁、移除玩家、广播离开
func (s *Service) LeaveRoom(roomID, playerID string) error {
	name := s.playerName(roomID, playerID)

	for _, pieceID := range s.locks.ReleaseAllFor(roomID, playerID) {
		s.events.Append(roomID, playerID, protocol.EventPieceUnlocked, map[string]any{
			"pieceId": pieceID,
		})
	}

	if err := s.rooms.RemovePlayer(roomID, playerID); err != nil {
		return err
	}

	// 房间随最后一人离开被回收，事件日志已由回收回调清空
	if s.rooms.Get(roomID) == nil {
		return nil
	}

	s.events.Append(roomID, playerID, protocol.EventPlayerLeft, map[string]any{
		"playerId":   playerID,
		"playerName": name,
	})
	return nil
}

// Disconnect 断线处理：释放全部锁（强制清理，防止拼图块被永久占用）、
// 标记离线但保留座位等待重连
func (s *Service) Disconnect(roomID, playerID string) {
	name := s.playerName(roomID, playerID)

	for _, pieceID := range s.locks.ReleaseAllFor(roomID, playerID) {
		s.events.Append(roomID, playerID, protocol.EventPieceUnlocked, map[string]any{
			"pieceId": pieceID,
		})
	}

	if err := s.rooms.MarkDisconnected(roomID, playerID); err != nil {
		return
	}

	s.events.Append(roomID, playerID, protocol.EventPlayerLeft, map[string]any{
		"playerId":     playerID,
		"playerName":   name,
		"disconnected": true, // 座位保留，可重连
	})
	log.Printf("📴 玩家 %s 从房间 %s 断开，锁已释放", playerID, roomID)
}

// playerName 尽力取玩家名用于事件载荷
func (s *Service) playerName(roomID, playerID string) string {
	r := s.rooms.Get(roomID)
	if r == nil {
		return ""
	}
	for _, p := range r.PlayersInfo() {
		if p.ID == playerID {
			return p.Name
		}
	}
	return ""
}

// ApplyEvent 应用一个客户端动作并追加对应事件
// Conflict（抢锁失败）以错误返回；Rejected（锁不匹配）是并发下的
// 正常结果，以 rejected 标记返回，不追加事件也不记日志
func (s *Service) ApplyEvent(roomID, playerID string, eventType protocol.EventType, data map[string]any) (*protocol.PostEventResponse, error) {
	if s.rooms.Get(roomID) == nil {
		return nil, apperrors.ErrRoomNotFound
	}

	switch eventType {
	case protocol.EventPiecePickup:
		return s.applyPickup(roomID, playerID, data)
	case protocol.EventPieceMove:
		return s.applyMove(roomID, playerID, data)
	case protocol.EventPieceDrop:
		return s.applyDrop(roomID, playerID, data)
	case protocol.EventCursorMove:
		return s.applyCursorMove(roomID, playerID, data)
	default:
		return nil, apperrors.ErrEventUnknown
	}
}

func (s *Service) applyPickup(roomID, playerID string, data map[string]any) (*protocol.PostEventResponse, error) {
	pieceID, ok := getString(data, "pieceId")
	if !ok {
		return nil, apperrors.ErrInvalidInput
	}

	if err := s.locks.Pickup(roomID, pieceID, playerID); err != nil {
		return nil, err
	}

	event := s.events.Append(roomID, playerID, protocol.EventPieceLocked, map[string]any{
		"pieceId":  pieceID,
		"lockedBy": playerID,
	})
	return &protocol.PostEventResponse{EventID: event.ID}, nil
}

func (s *Service) applyMove(roomID, playerID string, data map[string]any) (*protocol.PostEventResponse, error) {
	pieceID, ok := getString(data, "pieceId")
	x, okX := getFloat(data, "x")
	y, okY := getFloat(data, "y")
	if !ok || !okX || !okY {
		return nil, apperrors.ErrInvalidInput
	}

	if err := s.locks.Move(roomID, pieceID, playerID, x, y); err != nil {
		if rejected(err) {
			return &protocol.PostEventResponse{Rejected: true}, nil
		}
		return nil, err
	}

	event := s.events.Append(roomID, playerID, protocol.EventPieceMoved, map[string]any{
		"pieceId": pieceID,
		"x":       x,
		"y":       y,
	})
	return &protocol.PostEventResponse{EventID: event.ID}, nil
}

func (s *Service) applyDrop(roomID, playerID string, data map[string]any) (*protocol.PostEventResponse, error) {
	pieceID, ok := getString(data, "pieceId")
	x, okX := getFloat(data, "x")
	y, okY := getFloat(data, "y")
	if !ok || !okX || !okY {
		return nil, apperrors.ErrInvalidInput
	}

	placed, err := s.locks.Drop(roomID, pieceID, playerID, x, y)
	if err != nil {
		if rejected(err) {
			return &protocol.PostEventResponse{Rejected: true}, nil
		}
		return nil, err
	}

	if !placed {
		event := s.events.Append(roomID, playerID, protocol.EventPieceDrop, map[string]any{
			"pieceId": pieceID,
			"x":       x,
			"y":       y,
		})
		return &protocol.PostEventResponse{EventID: event.ID}, nil
	}

	return s.recordPlacement(roomID, playerID, pieceID)
}

// recordPlacement 归位后的连锁动作：piece_placed → game_state_update →（拼完时）game_completed
func (s *Service) recordPlacement(roomID, playerID, pieceID string) (*protocol.PostEventResponse, error) {
	event := s.events.Append(roomID, playerID, protocol.EventPiecePlaced, map[string]any{
		"pieceId": pieceID,
	})

	st, completed, err := s.tracker.OnPiecePlaced(roomID)
	if err != nil {
		return nil, err
	}

	s.events.Append(roomID, playerID, protocol.EventGameStateUpdate, map[string]any{
		"completedPieces":      st.CompletedPieces,
		"totalPieces":          st.TotalPieces,
		"completionPercentage": st.CompletionPercentage,
	})

	if completed {
		s.onCompleted(roomID, st)
	}
	s.rooms.SaveSnapshot(roomID)

	return &protocol.PostEventResponse{EventID: event.ID}, nil
}

// onCompleted 拼图完成：广播 game_completed 并异步落排行榜
func (s *Service) onCompleted(roomID string, st protocol.GameStateInfo) {
	r := s.rooms.Get(roomID)
	if r == nil {
		return
	}
	players := r.PlayersInfo()
	duration := st.EndTime.Sub(st.StartTime)

	roster := make([]map[string]any, 0, len(players))
	for _, p := range players {
		roster = append(roster, map[string]any{
			"playerId":   p.ID,
			"playerName": p.Name,
		})
	}

	// game_completed 由系统产生（playerId 为空），所有玩家都能轮询到
	s.events.Append(roomID, "", protocol.EventGameCompleted, map[string]any{
		"completionTime": duration.Milliseconds(),
		"totalPieces":    st.TotalPieces,
		"players":        roster,
	})

	if s.stats != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.stats.RecordCompletion(ctx, roomID, players, st.TotalPieces, duration)
		}()
	}

	log.Printf("🎉 房间 %s 拼图完成，用时 %s，共 %d 块", roomID, duration.Round(time.Second), st.TotalPieces)
}

func (s *Service) applyCursorMove(roomID, playerID string, data map[string]any) (*protocol.PostEventResponse, error) {
	x, okX := getFloat(data, "x")
	y, okY := getFloat(data, "y")
	if !okX || !okY {
		return nil, apperrors.ErrInvalidInput
	}

	r := s.rooms.Get(roomID)
	if r == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	if err := r.SetCursor(playerID, x, y); err != nil {
		return nil, err
	}

	event := s.events.Append(roomID, playerID, protocol.EventCursorUpdate, map[string]any{
		"playerId": playerID,
		"x":        x,
		"y":        y,
	})
	return &protocol.PostEventResponse{EventID: event.ID}, nil
}

// rejected 判断是否为锁不匹配类的良性拒绝
func rejected(err error) bool {
	return errors.Is(err, apperrors.ErrLockMismatch)
}

func getString(data map[string]any, key string) (string, bool) {
	v, ok := data[key].(string)
	return v, ok && v != ""
}

func getFloat(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
