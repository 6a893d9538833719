package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/puzzle-together/internal/game/events"
	"github.com/palemoky/puzzle-together/internal/game/lock"
	"github.com/palemoky/puzzle-together/internal/game/puzzle"
	"github.com/palemoky/puzzle-together/internal/game/room"
	"github.com/palemoky/puzzle-together/internal/game/session"
	"github.com/palemoky/puzzle-together/internal/game/state"
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// newTestServer spins up the full HTTP surface over a 2x2 puzzle
// so handler tests exercise real routing and status-code mapping.
func newTestServer(t *testing.T) (*httptest.Server, *room.Store) {
	t.Helper()
	rooms := room.NewStore(puzzle.NewTestGenerator(2, 2), nil, 2, time.Minute)
	t.Cleanup(rooms.Stop)

	svc := session.NewService(rooms, lock.NewManager(rooms, 30), events.NewLog(), state.NewTracker(rooms), nil)
	mux := http.NewServeMux()
	New(svc, nil).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, rooms
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createRoom(t *testing.T, srv *httptest.Server) protocol.CreateRoomResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/rooms", protocol.CreateRoomRequest{
		PlayerName:  "Alice",
		PuzzleImage: "cats.jpg",
		Difficulty:  "easy",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[protocol.CreateRoomResponse](t, resp)
}

func TestCreateRoom(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createRoom(t, srv)
	assert.Len(t, created.RoomID, 6)
	assert.NotEmpty(t, created.PlayerID)

	// Missing fields should be rejected before touching the service
	resp := postJSON(t, srv.URL+"/api/rooms", protocol.CreateRoomRequest{PlayerName: "Bob"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown difficulty maps to 400 with a protocol error code
	resp = postJSON(t, srv.URL+"/api/rooms", protocol.CreateRoomRequest{
		PlayerName: "Bob", PuzzleImage: "cats.jpg", Difficulty: "nightmare",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decodeBody[protocol.ErrorResponse](t, resp)
	assert.Equal(t, protocol.ErrCodeInvalidLevel, errResp.Code)
}

func TestJoinRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createRoom(t, srv)

	resp := postJSON(t, srv.URL+"/api/rooms/"+created.RoomID+"/join", protocol.JoinRoomRequest{PlayerName: "Bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	joined := decodeBody[protocol.JoinRoomResponse](t, resp)
	assert.NotEmpty(t, joined.PlayerID)
	require.NotNil(t, joined.Puzzle)
	assert.Len(t, joined.Puzzle.Pieces, 4)

	// Third player hits the capacity limit
	resp = postJSON(t, srv.URL+"/api/rooms/"+created.RoomID+"/join", protocol.JoinRoomRequest{PlayerName: "Carol"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errResp := decodeBody[protocol.ErrorResponse](t, resp)
	assert.Equal(t, protocol.ErrCodeRoomFull, errResp.Code)

	// Unknown room maps to 404
	resp = postJSON(t, srv.URL+"/api/rooms/000000/join", protocol.JoinRoomRequest{PlayerName: "Dave"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestRoomStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createRoom(t, srv)

	resp, err := http.Get(srv.URL + "/api/rooms/" + created.RoomID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeBody[protocol.RoomStatusResponse](t, resp)
	assert.Equal(t, created.RoomID, status.RoomID)
	assert.Len(t, status.Players, 1)
	assert.False(t, status.IsCompleted)

	resp, err = http.Get(srv.URL + "/api/rooms/000000")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPostEventStatusCodes(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createRoom(t, srv)
	eventsURL := srv.URL + "/api/rooms/" + created.RoomID + "/events"

	resp := postJSON(t, srv.URL+"/api/rooms/"+created.RoomID+"/join", protocol.JoinRoomRequest{PlayerName: "Bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bob := decodeBody[protocol.JoinRoomResponse](t, resp)

	// Alice picks up a piece
	resp = postJSON(t, eventsURL, protocol.PostEventRequest{
		PlayerID: created.PlayerID,
		Type:     protocol.EventPiecePickup,
		Data:     map[string]any{"pieceId": "p1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	applied := decodeBody[protocol.PostEventResponse](t, resp)
	assert.NotEmpty(t, applied.EventID)
	assert.False(t, applied.Rejected)

	// Bob loses the pickup race for the same piece: 409
	resp = postJSON(t, eventsURL, protocol.PostEventRequest{
		PlayerID: bob.PlayerID,
		Type:     protocol.EventPiecePickup,
		Data:     map[string]any{"pieceId": "p1"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errResp := decodeBody[protocol.ErrorResponse](t, resp)
	assert.Equal(t, protocol.ErrCodePieceLocked, errResp.Code)

	// Moving without holding the lock is a benign rejection, not an error
	resp = postJSON(t, eventsURL, protocol.PostEventRequest{
		PlayerID: bob.PlayerID,
		Type:     protocol.EventPieceMove,
		Data:     map[string]any{"pieceId": "p1", "x": 10.0, "y": 10.0},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rejected := decodeBody[protocol.PostEventResponse](t, resp)
	assert.True(t, rejected.Rejected)
	assert.Empty(t, rejected.EventID)

	// Unknown event type maps to 400
	resp = postJSON(t, eventsURL, protocol.PostEventRequest{
		PlayerID: created.PlayerID,
		Type:     "piece_teleport",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPollEvents(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createRoom(t, srv)
	base := srv.URL + "/api/rooms/" + created.RoomID + "/events"

	// Missing playerId query is invalid
	resp, err := http.Get(base)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/rooms/"+created.RoomID+"/join", protocol.JoinRoomRequest{PlayerName: "Bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bob := decodeBody[protocol.JoinRoomResponse](t, resp)

	// Alice sees Bob's join, never her own events
	resp, err = http.Get(base + "?playerId=" + created.PlayerID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	polled := decodeBody[protocol.PollEventsResponse](t, resp)
	require.Len(t, polled.Events, 1)
	assert.Equal(t, protocol.EventPlayerJoined, polled.Events[0].Type)
	assert.Equal(t, bob.PlayerID, polled.Events[0].PlayerID)

	// Advancing the cursor past the tail yields an empty JSON array
	cursor := polled.Events[0].ID
	resp, err = http.Get(fmt.Sprintf("%s?playerId=%s&lastEventId=%s", base, created.PlayerID, cursor))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	polled = decodeBody[protocol.PollEventsResponse](t, resp)
	assert.NotNil(t, polled.Events)
	assert.Empty(t, polled.Events)

	// Polling a vanished room maps to 404
	resp, err = http.Get(srv.URL + "/api/rooms/000000/events?playerId=" + created.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPurgeEvents(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createRoom(t, srv)
	base := srv.URL + "/api/rooms/" + created.RoomID + "/events"

	resp := postJSON(t, srv.URL+"/api/rooms/"+created.RoomID+"/join", protocol.JoinRoomRequest{PlayerName: "Bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, base, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	purged := decodeBody[protocol.PurgeEventsResponse](t, resp)
	assert.True(t, purged.Success)

	resp, err = http.Get(base + "?playerId=" + created.PlayerID)
	require.NoError(t, err)
	polled := decodeBody[protocol.PollEventsResponse](t, resp)
	assert.Empty(t, polled.Events)
}

func TestLeaveRoom(t *testing.T) {
	srv, rooms := newTestServer(t)
	created := createRoom(t, srv)

	resp := postJSON(t, srv.URL+"/api/rooms/"+created.RoomID+"/leave", protocol.LeaveRoomRequest{PlayerID: created.PlayerID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Last player leaving tears the room down
	assert.Nil(t, rooms.Get(created.RoomID))

	resp = postJSON(t, srv.URL+"/api/rooms/"+created.RoomID+"/leave", protocol.LeaveRoomRequest{PlayerID: created.PlayerID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestStatsUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)

	// Without Redis the stats surface is explicitly not implemented
	resp, err := http.Get(srv.URL + "/api/stats/fastest")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/stats/some-player")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	resp.Body.Close()
}

// TestFullGameOverHTTP walks a two-player session end to end:
// pickup conflict, placement events, completion broadcast.
func TestFullGameOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createRoom(t, srv)
	eventsURL := srv.URL + "/api/rooms/" + created.RoomID + "/events"

	resp := postJSON(t, srv.URL+"/api/rooms/"+created.RoomID+"/join", protocol.JoinRoomRequest{PlayerName: "Bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bob := decodeBody[protocol.JoinRoomResponse](t, resp)

	// Place all four pieces; the test generator puts p1..p4 at
	// (0,0) (100,0) (0,100) (100,100)
	targets := map[string][2]float64{
		"p1": {0, 0}, "p2": {100, 0}, "p3": {0, 100}, "p4": {100, 100},
	}
	for pieceID, xy := range targets {
		resp = postJSON(t, eventsURL, protocol.PostEventRequest{
			PlayerID: created.PlayerID,
			Type:     protocol.EventPiecePickup,
			Data:     map[string]any{"pieceId": pieceID},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = postJSON(t, eventsURL, protocol.PostEventRequest{
			PlayerID: created.PlayerID,
			Type:     protocol.EventPieceDrop,
			Data:     map[string]any{"pieceId": pieceID, "x": xy[0], "y": xy[1]},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// Bob's poll carries the placement trail ending in game_completed
	resp, err := http.Get(eventsURL + "?playerId=" + bob.PlayerID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	polled := decodeBody[protocol.PollEventsResponse](t, resp)

	var placed, completed int
	for _, ev := range polled.Events {
		switch ev.Type {
		case protocol.EventPiecePlaced:
			placed++
		case protocol.EventGameCompleted:
			completed++
		}
	}
	assert.Equal(t, 4, placed)
	assert.Equal(t, 1, completed)

	// Room status reflects completion
	resp, err = http.Get(srv.URL + "/api/rooms/" + created.RoomID)
	require.NoError(t, err)
	status := decodeBody[protocol.RoomStatusResponse](t, resp)
	assert.True(t, status.IsCompleted)
	assert.Equal(t, 4, status.GameState.CompletedPieces)

	// Placed pieces can no longer be picked up
	resp = postJSON(t, eventsURL, protocol.PostEventRequest{
		PlayerID: bob.PlayerID,
		Type:     protocol.EventPiecePickup,
		Data:     map[string]any{"pieceId": "p1"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errResp := decodeBody[protocol.ErrorResponse](t, resp)
	assert.Equal(t, protocol.ErrCodePiecePlaced, errResp.Code)
}
