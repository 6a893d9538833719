package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/palemoky/puzzle-together/internal/protocol"
)

// MaxEventsPerRoom 每个房间保留的最近事件数。
// 超过窗口的事件永久丢弃，慢消费者会退回全量日志并依赖幂等重放
const MaxEventsPerRoom = 100

// Log 按房间划分的有界追加事件日志，是轮询传输的后备存储
// 房间内事件全序由日志位置决定，事件 ID 只作为游标使用
type Log struct {
	rooms map[string][]*protocol.GameEvent
	subs  map[string]map[chan *protocol.GameEvent]struct{}
	mu    sync.RWMutex
}

// NewLog 创建事件日志
func NewLog() *Log {
	return &Log{
		rooms: make(map[string][]*protocol.GameEvent),
		subs:  make(map[string]map[chan *protocol.GameEvent]struct{}),
	}
}

// Append 追加一条事件并裁剪保留窗口，返回完整事件
func (l *Log) Append(roomID, playerID string, eventType protocol.EventType, data map[string]any) *protocol.GameEvent {
	event := &protocol.GameEvent{
		ID:        newEventID(),
		Type:      eventType,
		Data:      data,
		PlayerID:  playerID,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}

	l.mu.Lock()
	log := append(l.rooms[roomID], event)
	// 保留窗口裁剪：只留最近 MaxEventsPerRoom 条
	if len(log) > MaxEventsPerRoom {
		log = log[len(log)-MaxEventsPerRoom:]
	}
	l.rooms[roomID] = log

	// 投递给流式订阅者；慢消费者丢帧，轮询是权威通道
	for ch := range l.subs[roomID] {
		select {
		case ch <- event:
		default:
		}
	}
	l.mu.Unlock()

	return event
}

// Since 返回游标之后的事件，剔除调用方自己产生的事件
// 游标为空或已被裁剪出窗口时退回当前全量日志，宁可重放不可漏发
func (l *Log) Since(roomID, playerID, lastEventID string) []*protocol.GameEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	log := l.rooms[roomID]
	start := 0
	if lastEventID != "" {
		for i, event := range log {
			if event.ID == lastEventID {
				start = i + 1
				break
			}
		}
	}

	var result []*protocol.GameEvent
	for _, event := range log[start:] {
		if event.PlayerID == playerID {
			continue
		}
		result = append(result, event)
	}
	return result
}

// Purge 清空房间日志并断开所有订阅者
func (l *Log) Purge(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.rooms, roomID)
	for ch := range l.subs[roomID] {
		close(ch)
	}
	delete(l.subs, roomID)
}

// Len 当前保留的事件数
func (l *Log) Len(roomID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rooms[roomID])
}

// newEventID 生成事件 ID：毫秒时间戳前缀 + 随机后缀
// 顺序权威是日志位置，ID 的字典序无需严格单调
func newEventID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
