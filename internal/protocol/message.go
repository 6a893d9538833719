package protocol

import "time"

// EventType 游戏事件类型
type EventType string

// 客户端提交的事件类型
const (
	EventPiecePickup EventType = "piece_pickup" // 拿起拼图块
	EventPieceMove   EventType = "piece_move"   // 拖动拼图块
	EventPieceDrop   EventType = "piece_drop"   // 放下拼图块
	EventCursorMove  EventType = "cursor_move"  // 光标移动
)

// 服务端广播的事件类型
const (
	EventPieceLocked     EventType = "piece_locked"      // 拼图块被锁定
	EventPieceMoved      EventType = "piece_moved"       // 拼图块位置更新
	EventPieceUnlocked   EventType = "piece_unlocked"    // 拼图块锁释放
	EventPiecePlaced     EventType = "piece_placed"      // 拼图块归位
	EventCursorUpdate    EventType = "cursor_update"     // 其他玩家光标
	EventPlayerJoined    EventType = "player_joined"     // 玩家加入
	EventPlayerLeft      EventType = "player_left"       // 玩家离开
	EventGameStateUpdate EventType = "game_state_update" // 完成度更新
	EventGameCompleted   EventType = "game_completed"    // 拼图完成
)

// GameEvent 房间内的一条事件记录，追加后不可变
type GameEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	PlayerID  string         `json:"playerId"`
	RoomID    string         `json:"roomId"`
	Timestamp time.Time      `json:"timestamp"`
}

// --- HTTP 请求/响应载荷 ---

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	PlayerName  string `json:"playerName"`
	PuzzleImage string `json:"puzzleImage"`
	Difficulty  string `json:"difficulty"`
}

// CreateRoomResponse 创建房间响应
type CreateRoomResponse struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	PuzzleID string `json:"puzzleId"`
}

// JoinRoomRequest 加入房间请求
type JoinRoomRequest struct {
	PlayerName string `json:"playerName"`
}

// JoinRoomResponse 加入房间响应
type JoinRoomResponse struct {
	PlayerID  string         `json:"playerId"`
	Puzzle    *PuzzleInfo    `json:"puzzle"`
	GameState *GameStateInfo `json:"gameState"`
}

// RoomStatusResponse 房间状态响应
type RoomStatusResponse struct {
	RoomID      string         `json:"roomId"`
	Players     []*PlayerInfo  `json:"players"`
	Puzzle      *PuzzleInfo    `json:"puzzle"`
	GameState   *GameStateInfo `json:"gameState"`
	IsCompleted bool           `json:"isCompleted"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// PostEventRequest 提交事件请求
type PostEventRequest struct {
	PlayerID string         `json:"playerId"`
	Type     EventType      `json:"type"`
	Data     map[string]any `json:"data"`
}

// PostEventResponse 提交事件响应
type PostEventResponse struct {
	EventID  string `json:"eventId"`
	Rejected bool   `json:"rejected,omitempty"` // 锁不匹配等良性拒绝
}

// PollEventsResponse 轮询事件响应
type PollEventsResponse struct {
	Events []*GameEvent `json:"events"`
}

// PurgeEventsResponse 清空事件日志响应
type PurgeEventsResponse struct {
	Success bool `json:"success"`
}

// LeaveRoomRequest 离开房间请求
type LeaveRoomRequest struct {
	PlayerID string `json:"playerId"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- 快照 DTO ---

// PlayerInfo 玩家快照
type PlayerInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	IsConnected bool      `json:"isConnected"`
	Cursor      *Position `json:"cursor,omitempty"`
}

// Position 平面坐标
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PuzzleInfo 拼图快照
type PuzzleInfo struct {
	ID         string       `json:"id"`
	ImageURL   string       `json:"imageUrl"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	PieceCount int          `json:"pieceCount"`
	Difficulty string       `json:"difficulty"`
	Pieces     []*PieceInfo `json:"pieces"`
}

// PieceInfo 拼图块快照
type PieceInfo struct {
	ID       string  `json:"id"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	CorrectX float64 `json:"correctX"`
	CorrectY float64 `json:"correctY"`
	CurrentX float64 `json:"currentX"`
	CurrentY float64 `json:"currentY"`
	IsPlaced bool    `json:"isPlaced"`
	IsLocked bool    `json:"isLocked"`
	LockedBy string  `json:"lockedBy,omitempty"`
	Shape    string  `json:"shape"`
}

// GameStateInfo 对局状态快照
type GameStateInfo struct {
	CompletedPieces      int        `json:"completedPieces"`
	TotalPieces          int        `json:"totalPieces"`
	CompletionPercentage float64    `json:"completionPercentage"`
	IsCompleted          bool       `json:"isCompleted"`
	StartTime            time.Time  `json:"startTime"`
	EndTime              *time.Time `json:"endTime,omitempty"`
}
