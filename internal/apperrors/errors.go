package apperrors

import (
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// GameError 游戏错误（房间和拼图块操作共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrRoomNotFound  = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "房间不存在"}
	ErrRoomFull      = &GameError{Code: protocol.ErrCodeRoomFull, Message: "房间已满"}
	ErrNotInRoom     = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "您不在房间中"}
	ErrInvalidLevel  = &GameError{Code: protocol.ErrCodeInvalidLevel, Message: "无效的难度等级"}
	ErrPieceNotFound = &GameError{Code: protocol.ErrCodePieceNotFound, Message: "拼图块不存在"}
	ErrPieceLocked   = &GameError{Code: protocol.ErrCodePieceLocked, Message: "拼图块已被其他玩家拿起"}
	ErrLockMismatch  = &GameError{Code: protocol.ErrCodeLockMismatch, Message: "您未持有该拼图块"}
	ErrPiecePlaced   = &GameError{Code: protocol.ErrCodePiecePlaced, Message: "拼图块已归位"}
	ErrEventUnknown  = &GameError{Code: protocol.ErrCodeEventUnknown, Message: "未知的事件类型"}
	ErrInvalidInput  = &GameError{Code: protocol.ErrCodeInvalidMsg, Message: "无效的请求格式"}
)
