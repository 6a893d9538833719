package events

import (
	"github.com/palemoky/puzzle-together/internal/protocol"
)

// 订阅通道缓冲区。写满即丢帧，订阅者随后靠轮询补齐
const subscriberBuffer = 64

// Subscribe 订阅房间的实时事件流（WebSocket 推送用）
// 返回的通道在 Purge 时关闭
func (l *Log) Subscribe(roomID string) chan *protocol.GameEvent {
	ch := make(chan *protocol.GameEvent, subscriberBuffer)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subs[roomID] == nil {
		l.subs[roomID] = make(map[chan *protocol.GameEvent]struct{})
	}
	l.subs[roomID][ch] = struct{}{}
	return ch
}

// Unsubscribe 取消订阅并关闭通道
func (l *Log) Unsubscribe(roomID string, ch chan *protocol.GameEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if subs, ok := l.subs[roomID]; ok {
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(l.subs, roomID)
		}
	}
}

// SubscriberCount 房间当前的流式订阅者数量
func (l *Log) SubscriberCount(roomID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[roomID])
}
