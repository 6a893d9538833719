package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/puzzle-together/internal/config"
	"github.com/palemoky/puzzle-together/internal/game/events"
	"github.com/palemoky/puzzle-together/internal/game/lock"
	"github.com/palemoky/puzzle-together/internal/game/puzzle"
	"github.com/palemoky/puzzle-together/internal/game/room"
	"github.com/palemoky/puzzle-together/internal/game/session"
	"github.com/palemoky/puzzle-together/internal/game/state"
	"github.com/palemoky/puzzle-together/internal/server/handler"
	"github.com/palemoky/puzzle-together/internal/server/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 来源校验在 handleWebSocket 里做，便于记录拒绝日志
	},
}

// Server 拼图同步服务器
type Server struct {
	config     *config.Config
	redis      *redis.Client
	redisStore *storage.RedisStore
	stats      *storage.CompletionStats

	rooms    *room.Store
	eventLog *events.Log
	svc      *session.Service
	handler  *handler.Handler

	// 安全组件
	rateLimiter   *RateLimiter
	originChecker *OriginChecker

	httpServer *http.Server
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	// 初始化 Redis 客户端
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 测试 Redis 连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	s := &Server{
		config:     cfg,
		redis:      rdb,
		redisStore: storage.NewRedisStore(rdb),
		stats:      storage.NewCompletionStats(rdb),
		eventLog:   events.NewLog(),
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker: NewOriginChecker(cfg.Security.AllowedOrigins),
	}

	// 组装游戏核心：房间注册表 → 锁管理 → 完成度跟踪 → 同步服务
	s.rooms = room.NewStore(puzzle.NewGridGenerator(), s.redisStore, cfg.Game.MaxPlayers, cfg.Game.RoomTimeoutDuration())
	locks := lock.NewManager(s.rooms, cfg.Game.PlacementTolerance)
	tracker := state.NewTracker(s.rooms)
	s.svc = session.NewService(s.rooms, locks, s.eventLog, tracker, s.stats)
	s.handler = handler.New(s.svc, s.stats)

	log.Printf("🔒 安全配置: 请求限制=%d/s, 归位容差=%.0fpx, 房间上限=%d 人",
		cfg.Security.RateLimit.MaxPerSecond, cfg.Game.PlacementTolerance, cfg.Game.MaxPlayers)

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	mux := http.NewServeMux()
	s.handler.Register(mux)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	log.Printf("🧩 拼图服务器启动在 http://%s (CPU核心数: %d)", addr, runtime.NumCPU())
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.limit(mux),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}
	s.rooms.Stop()
	_ = s.redis.Close()
}

// limit 速率限制中间件
func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)
		if !s.rateLimiter.Allow(ip) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleWebSocket 实时事件流。轮询是权威通道，
// 这里只是把追加的事件按到达顺序推给订阅者降低延迟
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	// 来源验证
	if !s.originChecker.Check(r) {
		log.Printf("🚫 来源验证失败: %s (IP: %s)", r.Header.Get("Origin"), clientIP)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	roomID := r.URL.Query().Get("roomId")
	playerID := r.URL.Query().Get("playerId")
	rm := s.rooms.Get(roomID)
	if rm == nil || !rm.HasPlayer(playerID) {
		http.Error(w, "room or player not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	sub := s.eventLog.Subscribe(roomID)
	log.Printf("✅ 玩家 %s 订阅房间 %s 事件流 (IP: %s)", playerID, roomID, clientIP)

	done := make(chan struct{})

	// 读协程只为感知断开，客户端不在流上发消息
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		s.eventLog.Unsubscribe(roomID, sub)
		_ = conn.Close()
		// 连接断开视为玩家离线：释放锁、保留座位
		s.svc.Disconnect(roomID, playerID)
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-sub:
			if !ok {
				return
			}
			// 不回显订阅者自己的动作
			if event.PlayerID == playerID {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
