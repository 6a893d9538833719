package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/puzzle"
	"github.com/palemoky/puzzle-together/internal/game/room"
)

func setup(t *testing.T) (*Manager, string, string, string) {
	t.Helper()

	rooms := room.NewStore(puzzle.NewGridGenerator(), nil, 2, 10*time.Minute)
	t.Cleanup(rooms.Stop)

	r, alice, err := rooms.CreateRoom("Alice", "img", "easy")
	require.NoError(t, err)
	_, bob, err := rooms.JoinRoom(r.ID, "Bob")
	require.NoError(t, err)

	return NewManager(rooms, 30), r.ID, alice.ID, bob.ID
}

func TestManager_PickupConflict(t *testing.T) {
	t.Parallel()
	m, roomID, alice, bob := setup(t)

	require.NoError(t, m.Pickup(roomID, "p0_0", alice))
	assert.ErrorIs(t, m.Pickup(roomID, "p0_0", bob), apperrors.ErrPieceLocked)
}

func TestManager_PickupRace(t *testing.T) {
	t.Parallel()
	m, roomID, alice, bob := setup(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, player := range []string{alice, bob} {
		wg.Add(1)
		go func(i int, player string) {
			defer wg.Done()
			errs[i] = m.Pickup(roomID, "p1_1", player)
		}(i, player)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestManager_MoveRequiresLock(t *testing.T) {
	t.Parallel()
	m, roomID, alice, bob := setup(t)

	require.NoError(t, m.Pickup(roomID, "p0_0", alice))
	assert.NoError(t, m.Move(roomID, "p0_0", alice, 10, 10))
	assert.ErrorIs(t, m.Move(roomID, "p0_0", bob, 20, 20), apperrors.ErrLockMismatch)
}

func TestManager_DropPlacement(t *testing.T) {
	t.Parallel()
	m, roomID, alice, _ := setup(t)

	require.NoError(t, m.Pickup(roomID, "p0_0", alice))

	// p0_0 的目标位置是 (0,0)，容差 30 内归位
	placed, err := m.Drop(roomID, "p0_0", alice, 12, 9)
	require.NoError(t, err)
	assert.True(t, placed)

	// 归位后再拿起永远失败
	assert.ErrorIs(t, m.Pickup(roomID, "p0_0", alice), apperrors.ErrPiecePlaced)
}

func TestManager_DropOutside(t *testing.T) {
	t.Parallel()
	m, roomID, alice, bob := setup(t)

	require.NoError(t, m.Pickup(roomID, "p0_0", alice))
	placed, err := m.Drop(roomID, "p0_0", alice, 400, 400)
	require.NoError(t, err)
	assert.False(t, placed)

	// 锁已释放
	assert.NoError(t, m.Pickup(roomID, "p0_0", bob))
}

func TestManager_ReleaseAllFor(t *testing.T) {
	t.Parallel()
	m, roomID, alice, bob := setup(t)

	require.NoError(t, m.Pickup(roomID, "p0_0", alice))
	require.NoError(t, m.Pickup(roomID, "p0_1", alice))

	released := m.ReleaseAllFor(roomID, alice)
	assert.ElementsMatch(t, []string{"p0_0", "p0_1"}, released)

	assert.NoError(t, m.Pickup(roomID, "p0_0", bob))
	assert.NoError(t, m.Pickup(roomID, "p0_1", bob))
}

func TestManager_UnknownRoom(t *testing.T) {
	t.Parallel()
	m, _, alice, _ := setup(t)

	assert.ErrorIs(t, m.Pickup("000000", "p0_0", alice), apperrors.ErrRoomNotFound)
	assert.ErrorIs(t, m.Move("000000", "p0_0", alice, 1, 1), apperrors.ErrRoomNotFound)
	_, err := m.Drop("000000", "p0_0", alice, 1, 1)
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
	assert.Nil(t, m.ReleaseAllFor("000000", alice))
}
