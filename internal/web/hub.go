package web

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub websocket 广播中心
//
// 客户端的注册、注销与广播都在 Run 所在的 goroutine 中处理，
// 慢客户端（发送缓冲已满）直接断开，不拖慢其它客户端。
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// 仅用于对外读取客户端数量
	mu sync.RWMutex

	logger *zap.Logger
}

// NewHub 创建广播中心
func NewHub(name string, logger *zap.Logger) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run 广播循环，直到 ctx 取消；退出时关闭所有客户端
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Websocket client connected",
				zap.String("hub", h.name),
				zap.Int("clients", count),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Websocket client disconnected",
				zap.String("hub", h.name),
				zap.Int("clients", count),
			)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Dropped slow websocket client", zap.String("hub", h.name))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast 广播消息（不阻塞，缓冲满时丢弃）
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast channel full, dropping message", zap.String("hub", h.name))
	}
}

// BroadcastJSON 编码并广播
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
