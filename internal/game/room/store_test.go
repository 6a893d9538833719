package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/puzzle"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(puzzle.NewTestGenerator(2, 2), nil, 2, 10*time.Minute)
	t.Cleanup(s.Stop)
	return s
}

func TestStore_CreateRoom(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	room, player, err := s.CreateRoom("Alice", "https://img/cat.jpg", "easy")
	require.NoError(t, err)
	require.NotNil(t, room)
	require.NotNil(t, player)

	assert.Len(t, room.ID, roomCodeLength)
	assert.True(t, player.IsConnected)
	assert.Equal(t, 4, room.State.TotalPieces)
	assert.Equal(t, 0, room.State.CompletedPieces)
	assert.False(t, room.State.IsCompleted)
	assert.Nil(t, room.State.EndTime)
	assert.Equal(t, room, s.Get(room.ID))
}

func TestStore_CreateRoom_InvalidDifficulty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, _, err := s.CreateRoom("Alice", "img", "impossible")
	assert.ErrorIs(t, err, apperrors.ErrInvalidLevel)
}

func TestStore_JoinRoom(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	room, _, err := s.CreateRoom("Alice", "img", "easy")
	require.NoError(t, err)

	joined, bob, err := s.JoinRoom(room.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, room.ID, joined.ID)
	assert.NotEmpty(t, bob.ID)

	// 第三人永远进不来
	_, _, err = s.JoinRoom(room.ID, "Carol")
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)
}

func TestStore_JoinRoom_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, _, err := s.JoinRoom("000000", "Bob")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestStore_JoinRoom_ConcurrentLastSlot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	room, _, err := s.CreateRoom("Alice", "img", "easy")
	require.NoError(t, err)

	// 两人抢最后一个座位，恰好一人成功
	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = s.JoinRoom(room.ID, "Bob"+string(rune('A'+i)))
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrRoomFull)
		}
	}
	assert.Equal(t, 1, success)
}

func TestStore_Reconnect(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	room, alice, err := s.CreateRoom("Alice", "img", "easy")
	require.NoError(t, err)
	_, bob, err := s.JoinRoom(room.ID, "Bob")
	require.NoError(t, err)

	require.NoError(t, s.MarkDisconnected(room.ID, bob.ID))

	// 同名重连拿回原座位和原玩家 ID
	_, again, err := s.JoinRoom(room.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, again.ID)
	assert.True(t, again.IsConnected)

	// 在线玩家的名字不能被顶替
	_, _, err = s.JoinRoom(room.ID, "Alice")
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)
	assert.True(t, alice.IsConnected)
}

func TestStore_RemovePlayer(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	room, alice, err := s.CreateRoom("Alice", "img", "easy")
	require.NoError(t, err)
	_, bob, err := s.JoinRoom(room.ID, "Bob")
	require.NoError(t, err)

	require.NoError(t, s.RemovePlayer(room.ID, bob.ID))
	assert.Len(t, room.PlayersInfo(), 1)

	// 最后一人离开，房间立即回收
	require.NoError(t, s.RemovePlayer(room.ID, alice.ID))
	assert.Nil(t, s.Get(room.ID))
}

func TestStore_Snapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	room, _, err := s.CreateRoom("Alice", "img", "easy")
	require.NoError(t, err)

	snap, err := s.Snapshot(room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, snap.RoomID)
	assert.Len(t, snap.Players, 1)
	assert.Len(t, snap.Puzzle.Pieces, 4)
	assert.False(t, snap.IsCompleted)

	_, err = s.Snapshot("000000")
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestStore_EvictIdleRooms(t *testing.T) {
	t.Parallel()
	s := NewStore(puzzle.NewTestGenerator(2, 2), nil, 2, time.Millisecond)
	defer s.Stop()

	room, alice, err := s.CreateRoom("Alice", "img", "easy")
	require.NoError(t, err)

	// 在线玩家保护房间不被回收
	time.Sleep(5 * time.Millisecond)
	s.evictIdleRooms()
	assert.NotNil(t, s.Get(room.ID))

	require.NoError(t, s.MarkDisconnected(room.ID, alice.ID))
	time.Sleep(5 * time.Millisecond)
	s.evictIdleRooms()
	assert.Nil(t, s.Get(room.ID))
}
