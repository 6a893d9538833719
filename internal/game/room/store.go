package room

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/palemoky/puzzle-together/internal/apperrors"
	"github.com/palemoky/puzzle-together/internal/game/puzzle"
	"github.com/palemoky/puzzle-together/internal/protocol"
)

const (
	roomCodeLength = 6            // 房间号长度
	roomCodeChars  = "0123456789" // 房间号字符集
)

// Snapshotter 房间快照持久化（尽力而为，不参与恢复）
type Snapshotter interface {
	SaveRoom(ctx context.Context, roomID string, data *protocol.RoomStatusResponse) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// Store 房间注册表，按房间号索引所有房间
// 本进程是房间状态的唯一权威，其他组件通过房间号访问，不持有副本
type Store struct {
	generator   puzzle.Generator
	snapshotter Snapshotter // 可为 nil（测试或无 Redis 部署）
	maxPlayers  int
	roomTimeout time.Duration

	rooms   map[string]*Room
	mu      sync.RWMutex
	onEvict func(roomID string)

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewStore 创建房间注册表并启动空闲房间回收协程
func NewStore(gen puzzle.Generator, snap Snapshotter, maxPlayers int, roomTimeout time.Duration) *Store {
	s := &Store{
		generator:   gen,
		snapshotter: snap,
		maxPlayers:  maxPlayers,
		roomTimeout: roomTimeout,
		rooms:       make(map[string]*Room),
		stopCleanup: make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// CreateRoom 创建房间并注册首位玩家
func (s *Store) CreateRoom(playerName, puzzleImage, difficulty string) (*Room, *Player, error) {
	level, err := puzzle.ParseDifficulty(difficulty)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.generateRoomCode()
	pz := s.generator.Generate(puzzleImage, level)

	now := time.Now()
	player := &Player{
		ID:          uuid.NewString(),
		Name:        playerName,
		IsConnected: true,
		JoinedAt:    now,
	}

	room := &Room{
		ID:      code,
		Players: []*Player{player},
		Puzzle:  pz,
		State: GameState{
			TotalPieces: pz.PieceCount,
			StartTime:   now,
		},
		CreatedAt:  now,
		lastActive: now,
	}
	s.rooms[code] = room

	s.saveSnapshot(room)
	log.Printf("🏠 房间 %s 已创建，玩家 %s，难度 %s（%d 块）", code, playerName, difficulty, pz.PieceCount)

	return room, player, nil
}

// JoinRoom 加入房间。容量检查与入座在房间锁内原子完成，
// 同名离线玩家重连时复用原座位与玩家 ID
func (s *Store) JoinRoom(roomID, playerName string) (*Room, *Player, error) {
	room := s.Get(roomID)
	if room == nil {
		return nil, nil, apperrors.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// 重连：同名离线玩家拿回原座位
	for _, p := range room.Players {
		if p.Name == playerName && !p.IsConnected {
			p.IsConnected = true
			room.touch()
			s.saveSnapshot(room)
			log.Printf("🔁 玩家 %s 重连回房间 %s", playerName, roomID)
			return room, p, nil
		}
	}

	if len(room.Players) >= s.maxPlayers {
		return nil, nil, apperrors.ErrRoomFull
	}

	player := &Player{
		ID:          uuid.NewString(),
		Name:        playerName,
		IsConnected: true,
		JoinedAt:    time.Now(),
	}
	room.Players = append(room.Players, player)
	room.touch()

	s.saveSnapshot(room)
	log.Printf("👤 玩家 %s 加入房间 %s（%d/%d）", playerName, roomID, len(room.Players), s.maxPlayers)

	return room, player, nil
}

// OnEvict 注册房间回收回调，用于联动清理房间外的状态（如事件日志）
func (s *Store) OnEvict(fn func(roomID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Get 获取房间，不存在返回 nil
func (s *Store) Get(roomID string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

// Snapshot 获取房间状态快照
func (s *Store) Snapshot(roomID string) (*protocol.RoomStatusResponse, error) {
	room := s.Get(roomID)
	if room == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	return room.Snapshot(), nil
}

// MarkDisconnected 标记玩家离线，座位保留等待重连
func (s *Store) MarkDisconnected(roomID, playerID string) error {
	room := s.Get(roomID)
	if room == nil {
		return apperrors.ErrRoomNotFound
	}
	if err := room.MarkDisconnected(playerID); err != nil {
		return err
	}
	s.saveSnapshot(room)
	return nil
}

// RemovePlayer 玩家显式离开，空房间立即回收
func (s *Store) RemovePlayer(roomID, playerID string) error {
	room := s.Get(roomID)
	if room == nil {
		return apperrors.ErrRoomNotFound
	}

	remaining, err := room.RemovePlayer(playerID)
	if err != nil {
		return err
	}

	if remaining == 0 {
		s.Purge(roomID)
	} else {
		s.saveSnapshot(room)
	}
	return nil
}

// Purge 删除房间（管理操作或空房回收）
func (s *Store) Purge(roomID string) {
	s.mu.Lock()
	_, exists := s.rooms[roomID]
	delete(s.rooms, roomID)
	onEvict := s.onEvict
	s.mu.Unlock()

	if !exists {
		return
	}
	if onEvict != nil {
		onEvict(roomID)
	}
	if s.snapshotter != nil {
		go func() { _ = s.snapshotter.DeleteRoom(context.Background(), roomID) }()
	}
	log.Printf("🏠 房间 %s 已解散", roomID)
}

// Count 当前房间数
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// saveSnapshot 异步保存房间快照到 Redis，失败不影响主流程
func (s *Store) saveSnapshot(room *Room) {
	if s.snapshotter == nil {
		return
	}
	go func() { _ = s.snapshotter.SaveRoom(context.Background(), room.ID, room.Snapshot()) }()
}

// SaveSnapshot 按房间号触发一次快照保存，拼图进度变化后调用
func (s *Store) SaveSnapshot(roomID string) {
	if room := s.Get(roomID); room != nil {
		s.saveSnapshot(room)
	}
}

// generateRoomCode 生成未占用的房间号，调用方需持有 s.mu
func (s *Store) generateRoomCode() string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeChars[rand.Intn(len(roomCodeChars))]
		}
		if _, exists := s.rooms[string(code)]; !exists {
			return string(code)
		}
	}
}
