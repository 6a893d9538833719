package handler

import (
	"net/http"
	"strconv"

	"github.com/palemoky/puzzle-together/internal/protocol"
)

// PlayerStats 查询玩家完成统计
func (h *Handler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		http.Error(w, "stats disabled", http.StatusNotImplemented)
		return
	}

	stats, err := h.stats.GetPlayerStats(r.Context(), r.PathValue("playerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if stats == nil {
		writeJSON(w, http.StatusNotFound, protocol.ErrorResponse{
			Code:    protocol.ErrCodeUnknown,
			Message: "暂无该玩家的完成记录",
		})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Fastest 查询最快完成榜
func (h *Handler) Fastest(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		http.Error(w, "stats disabled", http.StatusNotImplemented)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.stats.GetFastest(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
