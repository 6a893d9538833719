package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/puzzle"
	"github.com/palemoky/puzzle-together/internal/game/room"
)

func setup(t *testing.T) (*Tracker, string, int) {
	t.Helper()

	rooms := room.NewStore(puzzle.NewGridGenerator(), nil, 2, 10*time.Minute)
	t.Cleanup(rooms.Stop)

	r, _, err := rooms.CreateRoom("Alice", "img", "easy")
	require.NoError(t, err)
	return NewTracker(rooms), r.ID, r.State.TotalPieces
}

func TestTracker_OnPiecePlaced(t *testing.T) {
	t.Parallel()
	tracker, roomID, total := setup(t)

	for i := 1; i < total; i++ {
		st, completed, err := tracker.OnPiecePlaced(roomID)
		require.NoError(t, err)
		assert.False(t, completed)
		assert.Equal(t, i, st.CompletedPieces)
		assert.False(t, st.IsCompleted)
		assert.Nil(t, st.EndTime)
	}

	// 最后一块触发完成转换，且只触发这一次
	st, completed, err := tracker.OnPiecePlaced(roomID)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, st.IsCompleted)
	require.NotNil(t, st.EndTime)
	assert.Equal(t, total, st.CompletedPieces)

	st, completed, err = tracker.OnPiecePlaced(roomID)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, total, st.CompletedPieces)
}

func TestTracker_Snapshot(t *testing.T) {
	t.Parallel()
	tracker, roomID, total := setup(t)

	st, err := tracker.Snapshot(roomID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.CompletedPieces)
	assert.Equal(t, total, st.TotalPieces)
	assert.Zero(t, st.CompletionPercentage)

	_, _, err = tracker.OnPiecePlaced(roomID)
	require.NoError(t, err)

	st, err = tracker.Snapshot(roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CompletedPieces)
	assert.Greater(t, st.CompletionPercentage, 0.0)
}

func TestTracker_UnknownRoom(t *testing.T) {
	t.Parallel()
	tracker, _, _ := setup(t)

	_, _, err := tracker.OnPiecePlaced("000000")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
	_, err = tracker.Snapshot("000000")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}
