package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/session"
	"github.com/palemoky/puzzle-together/internal/protocol"
	"github.com/palemoky/puzzle-together/internal/server/storage"
)

// 请求体大小上限，拼图事件载荷都很小
const maxBodyBytes = 64 << 10

// Handler HTTP 请求处理器，把传输层请求翻译成同步服务调用
type Handler struct {
	svc   *session.Service
	stats *storage.CompletionStats // 可为 nil（无 Redis 部署）
}

// New 创建处理器
func New(svc *session.Service, stats *storage.CompletionStats) *Handler {
	return &Handler{svc: svc, stats: stats}
}

// Register 注册所有路由
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.CreateRoom)
	mux.HandleFunc("POST /api/rooms/{id}/join", h.JoinRoom)
	mux.HandleFunc("POST /api/rooms/{id}/leave", h.LeaveRoom)
	mux.HandleFunc("GET /api/rooms/{id}", h.RoomStatus)
	mux.HandleFunc("GET /api/rooms/{id}/events", h.PollEvents)
	mux.HandleFunc("POST /api/rooms/{id}/events", h.PostEvent)
	mux.HandleFunc("DELETE /api/rooms/{id}/events", h.PurgeEvents)
	mux.HandleFunc("GET /api/stats/fastest", h.Fastest)
	mux.HandleFunc("GET /api/stats/{playerId}", h.PlayerStats)
}

// decode 解析 JSON 请求体
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.ErrInvalidInput
	}
	return nil
}

// writeJSON 输出 JSON 响应
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按错误分类映射 HTTP 状态码
func writeError(w http.ResponseWriter, err error) {
	var gameErr *apperrors.GameError
	if !errors.As(err, &gameErr) {
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorResponse{
			Code:    protocol.ErrCodeUnknown,
			Message: err.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch gameErr.Code {
	case protocol.ErrCodeInvalidMsg, protocol.ErrCodeInvalidLevel, protocol.ErrCodeEventUnknown:
		status = http.StatusBadRequest
	case protocol.ErrCodeRoomNotFound, protocol.ErrCodePieceNotFound, protocol.ErrCodeNotInRoom:
		status = http.StatusNotFound
	case protocol.ErrCodeRoomFull, protocol.ErrCodePieceLocked, protocol.ErrCodePiecePlaced:
		status = http.StatusConflict
	}

	writeJSON(w, status, protocol.ErrorResponse{
		Code:    gameErr.Code,
		Message: gameErr.Message,
	})
}
