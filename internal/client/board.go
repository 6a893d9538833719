package client

import (
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// PieceView is the client-side mirror of a single piece
type PieceView struct {
	ID       string
	Row, Col int
	X, Y     float64
	IsPlaced bool
	IsLocked bool
	LockedBy string
}

// CursorView is another player's last reported cursor position
type CursorView struct {
	X, Y float64
}

// Board manages the client-side mirror of the shared puzzle.
// It is rebuilt from a room snapshot and then kept current by
// replaying polled events; replay is idempotent, so re-applying
// an event after a snapshot refresh is harmless.
type Board struct {
	RoomID string

	Pieces  map[string]*PieceView
	Players map[string]protocol.PlayerInfo
	Cursors map[string]CursorView

	CompletedPieces      int
	TotalPieces          int
	CompletionPercentage float64
	IsCompleted          bool
}

// NewBoard creates an empty board mirror
func NewBoard() *Board {
	return &Board{
		Pieces:  make(map[string]*PieceView),
		Players: make(map[string]protocol.PlayerInfo),
		Cursors: make(map[string]CursorView),
	}
}

// LoadSnapshot replaces the mirror with an authoritative snapshot
func (b *Board) LoadSnapshot(status *protocol.RoomStatusResponse) {
	b.RoomID = status.RoomID
	b.Pieces = make(map[string]*PieceView, len(status.Puzzle.Pieces))
	b.Players = make(map[string]protocol.PlayerInfo, len(status.Players))
	b.Cursors = make(map[string]CursorView)

	for _, p := range status.Puzzle.Pieces {
		b.Pieces[p.ID] = &PieceView{
			ID:       p.ID,
			Row:      p.Row,
			Col:      p.Col,
			X:        p.CurrentX,
			Y:        p.CurrentY,
			IsPlaced: p.IsPlaced,
			IsLocked: p.IsLocked,
			LockedBy: p.LockedBy,
		}
	}
	for _, pl := range status.Players {
		b.Players[pl.ID] = *pl
		if pl.Cursor != nil {
			b.Cursors[pl.ID] = CursorView{X: pl.Cursor.X, Y: pl.Cursor.Y}
		}
	}
	if status.GameState != nil {
		b.CompletedPieces = status.GameState.CompletedPieces
		b.TotalPieces = status.GameState.TotalPieces
		b.CompletionPercentage = status.GameState.CompletionPercentage
	}
	b.IsCompleted = status.IsCompleted
}

// Apply replays one polled event onto the mirror
func (b *Board) Apply(ev *protocol.GameEvent) {
	switch ev.Type {
	case protocol.EventPieceLocked:
		if p := b.piece(ev); p != nil {
			p.IsLocked = true
			p.LockedBy = getString(ev.Data, "lockedBy")
		}
	case protocol.EventPieceMoved, protocol.EventPieceDrop:
		if p := b.piece(ev); p != nil && !p.IsPlaced {
			p.X = getFloat(ev.Data, "x")
			p.Y = getFloat(ev.Data, "y")
			if ev.Type == protocol.EventPieceDrop {
				p.IsLocked = false
				p.LockedBy = ""
			}
		}
	case protocol.EventPieceUnlocked:
		if p := b.piece(ev); p != nil {
			p.IsLocked = false
			p.LockedBy = ""
		}
	case protocol.EventPiecePlaced:
		if p := b.piece(ev); p != nil {
			p.IsPlaced = true
			p.IsLocked = false
			p.LockedBy = ""
		}
	case protocol.EventCursorUpdate:
		b.Cursors[ev.PlayerID] = CursorView{
			X: getFloat(ev.Data, "x"),
			Y: getFloat(ev.Data, "y"),
		}
	case protocol.EventPlayerJoined:
		b.Players[ev.PlayerID] = protocol.PlayerInfo{
			ID:          ev.PlayerID,
			Name:        getString(ev.Data, "playerName"),
			IsConnected: true,
		}
	case protocol.EventPlayerLeft:
		if disconnected, _ := ev.Data["disconnected"].(bool); disconnected {
			if pl, ok := b.Players[ev.PlayerID]; ok {
				pl.IsConnected = false
				b.Players[ev.PlayerID] = pl
			}
		} else {
			delete(b.Players, ev.PlayerID)
		}
		delete(b.Cursors, ev.PlayerID)
	case protocol.EventGameStateUpdate:
		b.CompletedPieces = int(getFloat(ev.Data, "completedPieces"))
		b.TotalPieces = int(getFloat(ev.Data, "totalPieces"))
		b.CompletionPercentage = getFloat(ev.Data, "completionPercentage")
	case protocol.EventGameCompleted:
		b.IsCompleted = true
	}
}

func (b *Board) piece(ev *protocol.GameEvent) *PieceView {
	return b.Pieces[getString(ev.Data, "pieceId")]
}

// getString reads a string field from decoded event data
func getString(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// getFloat reads a numeric field from decoded event data.
// JSON numbers always decode as float64.
func getFloat(data map[string]any, key string) float64 {
	f, _ := data[key].(float64)
	return f
}
