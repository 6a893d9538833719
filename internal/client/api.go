package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/palemoky/puzzle-together/internal/protocol"
)

// API is the polling HTTP client for the puzzle server.
// It remembers the player identity and the poll cursor, so callers
// just keep calling Poll to receive the other player's actions.
type API struct {
	baseURL string
	http    *http.Client

	// Session identity, set by CreateRoom/JoinRoom
	RoomID   string
	PlayerID string

	// lastEventID is the poll cursor; empty means "give me everything"
	lastEventID string
}

// NewAPI creates an API client for the given server base URL
func NewAPI(baseURL string) *API {
	return &API{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateRoom creates a room and binds the client to it
func (a *API) CreateRoom(ctx context.Context, playerName, puzzleImage, difficulty string) (*protocol.CreateRoomResponse, error) {
	var resp protocol.CreateRoomResponse
	err := a.post(ctx, "/api/rooms", protocol.CreateRoomRequest{
		PlayerName:  playerName,
		PuzzleImage: puzzleImage,
		Difficulty:  difficulty,
	}, &resp)
	if err != nil {
		return nil, err
	}
	a.RoomID = resp.RoomID
	a.PlayerID = resp.PlayerID
	a.lastEventID = ""
	return &resp, nil
}

// JoinRoom joins an existing room and binds the client to it
func (a *API) JoinRoom(ctx context.Context, roomID, playerName string) (*protocol.JoinRoomResponse, error) {
	var resp protocol.JoinRoomResponse
	err := a.post(ctx, "/api/rooms/"+roomID+"/join", protocol.JoinRoomRequest{PlayerName: playerName}, &resp)
	if err != nil {
		return nil, err
	}
	a.RoomID = roomID
	a.PlayerID = resp.PlayerID
	a.lastEventID = ""
	return &resp, nil
}

// Status fetches the authoritative room snapshot
func (a *API) Status(ctx context.Context) (*protocol.RoomStatusResponse, error) {
	var resp protocol.RoomStatusResponse
	if err := a.get(ctx, "/api/rooms/"+a.RoomID, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Poll fetches events appended since the last poll. The cursor only
// advances on success, so a failed poll is safe to retry.
func (a *API) Poll(ctx context.Context) ([]*protocol.GameEvent, error) {
	q := url.Values{"playerId": {a.PlayerID}}
	if a.lastEventID != "" {
		q.Set("lastEventId", a.lastEventID)
	}

	var resp protocol.PollEventsResponse
	if err := a.get(ctx, "/api/rooms/"+a.RoomID+"/events?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if n := len(resp.Events); n > 0 {
		a.lastEventID = resp.Events[n-1].ID
	}
	return resp.Events, nil
}

// PickupPiece requests the lock on a piece
func (a *API) PickupPiece(ctx context.Context, pieceID string) (*protocol.PostEventResponse, error) {
	return a.postEvent(ctx, protocol.EventPiecePickup, map[string]any{"pieceId": pieceID})
}

// MovePiece reports a drag position for a held piece
func (a *API) MovePiece(ctx context.Context, pieceID string, x, y float64) (*protocol.PostEventResponse, error) {
	return a.postEvent(ctx, protocol.EventPieceMove, map[string]any{"pieceId": pieceID, "x": x, "y": y})
}

// DropPiece releases a held piece at the given position
func (a *API) DropPiece(ctx context.Context, pieceID string, x, y float64) (*protocol.PostEventResponse, error) {
	return a.postEvent(ctx, protocol.EventPieceDrop, map[string]any{"pieceId": pieceID, "x": x, "y": y})
}

// MoveCursor reports the local cursor position
func (a *API) MoveCursor(ctx context.Context, x, y float64) (*protocol.PostEventResponse, error) {
	return a.postEvent(ctx, protocol.EventCursorMove, map[string]any{"x": x, "y": y})
}

// Leave leaves the room explicitly
func (a *API) Leave(ctx context.Context) error {
	return a.post(ctx, "/api/rooms/"+a.RoomID+"/leave", protocol.LeaveRoomRequest{PlayerID: a.PlayerID}, nil)
}

func (a *API) postEvent(ctx context.Context, eventType protocol.EventType, data map[string]any) (*protocol.PostEventResponse, error) {
	var resp protocol.PostEventResponse
	err := a.post(ctx, "/api/rooms/"+a.RoomID+"/events", protocol.PostEventRequest{
		PlayerID: a.PlayerID,
		Type:     eventType,
		Data:     data,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *API) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *API) do(req *http.Request, out any) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr protocol.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("server error %d: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
