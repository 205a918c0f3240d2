package websocket

import (
	"encoding/json"
	"sync"

	"github.com/jmgc95/gcash-buy-backend/internal/model"
	"github.com/sirupsen/logrus"
)

// StatusMessage 推送给客户端的状态消息
type StatusMessage struct {
	ID     string       `json:"id"`
	Status model.Status `json:"status"`
}

// Hub 管理所有 WebSocket 连接,按提交记录 ID 分组
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	// 互斥锁，保护 clients map
	mu sync.RWMutex

	logger logrus.FieldLogger
	done   chan struct{}
	once   sync.Once
}

// NewHub 创建新的 Hub
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run 运行 Hub,直到 Stop 被调用
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.remove(client)

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 停止 Hub 并关闭所有客户端
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// PublishStatus 向订阅该记录的客户端推送状态
func (h *Hub) PublishStatus(id string, status model.Status) {
	message, err := json.Marshal(StatusMessage{ID: id, Status: status})
	if err != nil {
		h.logger.WithError(err).Error("failed to encode status message")
		return
	}
	h.BroadcastToSubmission(id, message)
}

// BroadcastToSubmission 向特定记录的订阅者广播消息
// 发送队列已满的客户端会被断开
func (h *Hub) BroadcastToSubmission(submissionID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.SubmissionID != submissionID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.clients, client)
		}
	}
}

// SubscriberCount 获取某条记录的订阅者数量
func (h *Hub) SubscriberCount(submissionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for client := range h.clients {
		if client.SubmissionID == submissionID {
			n++
		}
	}
	return n
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
