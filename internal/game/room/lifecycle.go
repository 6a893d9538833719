package room

import (
	"log"
	"time"
)

const cleanupInterval = time.Minute

// cleanupLoop 定期回收所有玩家都已离线且超过空闲时限的房间
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.evictIdleRooms()
		}
	}
}

// evictIdleRooms 执行一轮空闲房间回收
func (s *Store) evictIdleRooms() {
	s.mu.RLock()
	var idle []string
	for id, room := range s.rooms {
		if room.idle(s.roomTimeout) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range idle {
		log.Printf("🧹 房间 %s 空闲超时，回收", id)
		s.Purge(id)
	}
}

// Stop 停止回收协程（关机或测试清理）
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}
