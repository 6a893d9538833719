package protocol

// 错误码
const (
	ErrCodeUnknown       = 1000
	ErrCodeInvalidMsg    = 1001 // 字段缺失或格式错误
	ErrCodeRateLimit     = 1002 // 速率限制
	ErrCodeRoomNotFound  = 2001
	ErrCodeRoomFull      = 2002
	ErrCodeNotInRoom     = 2003
	ErrCodeInvalidLevel  = 2005 // 难度不合法
	ErrCodePieceNotFound = 3101
	ErrCodePieceLocked   = 3102 // 拼图块已被其他玩家锁定
	ErrCodeLockMismatch  = 3103 // 非锁持有者操作（良性，客户端回弹即可）
	ErrCodePiecePlaced   = 3104 // 拼图块已归位，不可再移动
	ErrCodeEventUnknown  = 3105 // 未知事件类型
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:       "未知错误",
	ErrCodeInvalidMsg:    "无效的请求格式",
	ErrCodeRateLimit:     "请求过于频繁",
	ErrCodeRoomNotFound:  "房间不存在",
	ErrCodeRoomFull:      "房间已满",
	ErrCodeNotInRoom:     "您不在房间中",
	ErrCodeInvalidLevel:  "无效的难度等级",
	ErrCodePieceNotFound: "拼图块不存在",
	ErrCodePieceLocked:   "拼图块已被其他玩家拿起",
	ErrCodeLockMismatch:  "您未持有该拼图块",
	ErrCodePiecePlaced:   "拼图块已归位",
	ErrCodeEventUnknown:  "未知的事件类型",
}
