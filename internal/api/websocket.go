// internal/api/websocket.go
package api

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 8 * 1024
	clientSendSize = 16
)

// WebSocket 升级器配置，CheckOrigin 为空时只接受同源请求
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// 客户端操作
const (
	OpGet    = "get"
	OpUpdate = "update"
	OpAppend = "append"
	OpSubmit = "submit"
)

// 服务端消息类型
const (
	FrameDraft     = "draft"
	FrameSubmitted = "submitted"
	FrameError     = "error"
)

// ClientFrame 客户端发来的操作
type ClientFrame struct {
	Op    string `json:"op"`
	Group string `json:"group,omitempty"`
	Index int    `json:"index,omitempty"`
	Value string `json:"value,omitempty"`
}

// ServerFrame 服务端推送的消息
type ServerFrame struct {
	Type      string                   `json:"type"`
	Draft     *models.ArticleDraft     `json:"draft,omitempty"`
	Result    *models.SubmissionResult `json:"result,omitempty"`
	Error     *APIError                `json:"error,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

func draftFrame(d models.ArticleDraft) ServerFrame {
	return ServerFrame{Type: FrameDraft, Draft: &d, Timestamp: time.Now()}
}

func errorFrame(code, message string) ServerFrame {
	return ServerFrame{
		Type:      FrameError,
		Error:     &APIError{Code: code, Message: sanitizeErrorMessage(message)},
		Timestamp: time.Now(),
	}
}

// WebSocketClient 表示一个 WebSocket 客户端连接
type WebSocketClient struct {
	conn      *websocket.Conn
	userID    string
	send      chan ServerFrame
	done      chan struct{}
	closed    int32 // 原子操作标志，0=开启，1=关闭
	lastPing  int64 // 最后一次 pong 的 UnixNano
	createdAt time.Time
}

func newWebSocketClient(conn *websocket.Conn, userID string) *WebSocketClient {
	now := time.Now()
	return &WebSocketClient{
		conn:      conn,
		userID:    userID,
		send:      make(chan ServerFrame, clientSendSize),
		done:      make(chan struct{}),
		lastPing:  now.UnixNano(),
		createdAt: now,
	}
}

// Close 安全关闭客户端连接，可重复调用
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		client.conn.Close()
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 更新最后ping时间
func (client *WebSocketClient) UpdatePing() {
	atomic.StoreInt64(&client.lastPing, time.Now().UnixNano())
}

// LastPing 最后一次收到 pong 的时间
func (client *WebSocketClient) LastPing() time.Time {
	return time.Unix(0, atomic.LoadInt64(&client.lastPing))
}

// Send 非阻塞地把消息放入发送队列，队列满或已关闭时返回 false
func (client *WebSocketClient) Send(frame ServerFrame) bool {
	if client.IsClosed() {
		return false
	}
	select {
	case client.send <- frame:
		return true
	case <-client.done:
		return false
	default:
		return false
	}
}

// WebSocketManager 按用户管理草稿同步连接
type WebSocketManager struct {
	mu      sync.RWMutex
	clients map[string]map[*WebSocketClient]struct{} // userID -> connections
	logger  *utils.Logger
	metrics *utils.MetricsCollector
}

// NewWebSocketManager 创建连接管理器
func NewWebSocketManager(logger *utils.Logger, metrics *utils.MetricsCollector) *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[string]map[*WebSocketClient]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

func (manager *WebSocketManager) register(client *WebSocketClient) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.clients[client.userID] == nil {
		manager.clients[client.userID] = make(map[*WebSocketClient]struct{})
	}
	manager.clients[client.userID][client] = struct{}{}
	manager.metrics.AddGauge(utils.MetricWSConnections, 1)

	manager.logger.Info("草稿同步连接已建立", map[string]interface{}{
		"user_id":     client.userID,
		"connections": len(manager.clients[client.userID]),
	})
}

func (manager *WebSocketManager) unregister(client *WebSocketClient) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	conns, ok := manager.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(manager.clients, client.userID)
	}
	manager.metrics.AddGauge(utils.MetricWSConnections, -1)

	manager.logger.Info("草稿同步连接已断开", map[string]interface{}{
		"user_id":  client.userID,
		"duration": time.Since(client.createdAt).String(),
	})
}

// Count 当前连接总数
func (manager *WebSocketManager) Count() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	total := 0
	for _, conns := range manager.clients {
		total += len(conns)
	}
	return total
}

// GetStatus 汇总连接状态，不含用户标识，可在公开的健康检查中返回
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	total := 0
	var oldestPing time.Time
	for _, conns := range manager.clients {
		for client := range conns {
			total++
			if ping := client.LastPing(); oldestPing.IsZero() || ping.Before(oldestPing) {
				oldestPing = ping
			}
		}
	}

	status := map[string]interface{}{
		"total_users":       len(manager.clients),
		"total_connections": total,
	}
	// 距最久未响应连接的上次 pong 的秒数，接近 pongWait 说明连接即将超时
	if total > 0 {
		status["max_pong_age_seconds"] = int(time.Since(oldestPing).Seconds())
	}
	return status
}

// Shutdown 关闭所有连接。被劫持的连接不受 http.Server.Shutdown 管理
func (manager *WebSocketManager) Shutdown() {
	manager.mu.RLock()
	clients := make([]*WebSocketClient, 0)
	for _, conns := range manager.clients {
		for client := range conns {
			clients = append(clients, client)
		}
	}
	manager.mu.RUnlock()

	for _, client := range clients {
		client.Close()
	}
	if len(clients) > 0 {
		manager.logger.Info("WebSocket 管理器已关闭", map[string]interface{}{"closed": len(clients)})
	}
}

// Close 实现 io.Closer，便于容器统一关闭
func (manager *WebSocketManager) Close() error {
	manager.Shutdown()
	return nil
}
