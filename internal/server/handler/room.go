package handler

import (
	"net/http"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// CreateRoom 处理创建房间
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateRoomRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PlayerName == "" || req.PuzzleImage == "" || req.Difficulty == "" {
		writeError(w, apperrors.ErrInvalidInput)
		return
	}

	resp, err := h.svc.CreateRoom(req.PlayerName, req.PuzzleImage, req.Difficulty)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// JoinRoom 处理加入房间
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req protocol.JoinRoomRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PlayerName == "" {
		writeError(w, apperrors.ErrInvalidInput)
		return
	}

	resp, err := h.svc.JoinRoom(r.PathValue("id"), req.PlayerName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// LeaveRoom 处理显式离开房间
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req protocol.LeaveRoomRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PlayerID == "" {
		writeError(w, apperrors.ErrInvalidInput)
		return
	}

	if err := h.svc.LeaveRoom(r.PathValue("id"), req.PlayerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.PurgeEventsResponse{Success: true})
}

// RoomStatus 处理房间状态查询
func (h *Handler) RoomStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Status(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
