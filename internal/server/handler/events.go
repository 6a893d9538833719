package handler

import (
	"net/http"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// PollEvents 处理游标轮询
// lastEventId 为空表示首次轮询，返回当前保留的全量日志
func (h *Handler) PollEvents(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	playerID := r.URL.Query().Get("playerId")
	if roomID == "" || playerID == "" {
		writeError(w, apperrors.ErrInvalidInput)
		return
	}

	events, err := h.svc.Poll(roomID, playerID, r.URL.Query().Get("lastEventId"))
	if err != nil {
		writeError(w, err)
		return
	}

	// 空结果序列化为 []，轮询客户端无需判空
	if events == nil {
		events = []*protocol.GameEvent{}
	}
	writeJSON(w, http.StatusOK, protocol.PollEventsResponse{Events: events})
}

// PostEvent 处理事件提交
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var req protocol.PostEventRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PlayerID == "" || req.Type == "" {
		writeError(w, apperrors.ErrInvalidInput)
		return
	}

	resp, err := h.svc.ApplyEvent(r.PathValue("id"), req.PlayerID, req.Type, req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PurgeEvents 处理清空事件日志（管理操作）
func (h *Handler) PurgeEvents(w http.ResponseWriter, r *http.Request) {
	h.svc.PurgeEvents(r.PathValue("id"))
	writeJSON(w, http.StatusOK, protocol.PurgeEventsResponse{Success: true})
}
