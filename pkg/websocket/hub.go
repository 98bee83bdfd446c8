package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client 代表一个WebSocket连接的用户
// UserID: 用户ID
// Conn: WebSocket连接
// Send: 发送消息的通道

type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend 非阻塞发送
// 连接已关闭或发送缓冲已满时丢弃，返回是否送入缓冲
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// closeSend 关闭发送通道，幂等
// 之后的trySend全部丢弃，避免向已关闭通道发送
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Hub 管理所有在线连接与会话房间
// clients 按用户ID索引（同一用户重复连接时新连接替换旧连接）
// rooms 按会话ID索引，房间内按成员用户ID索引
// 并发安全；单房间内的广播顺序与调用顺序一致

type Hub struct {
	lock    sync.RWMutex
	clients map[uint]*Client
	rooms   map[uint]map[uint]*Client
}

// NewHub 创建Hub实例
// Hub 在 main 中构造一次，注入到需要广播的服务中
func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint]*Client),
		rooms:   make(map[uint]map[uint]*Client),
	}
}

// Register 注册新连接
// 同一用户已有连接时返回被替换的旧连接，由调用方负责关闭
func (h *Hub) Register(client *Client) *Client {
	h.lock.Lock()
	defer h.lock.Unlock()

	old := h.clients[client.UserID]
	h.clients[client.UserID] = client

	if old != nil {
		// 旧连接从所有房间移除，避免旧socket继续收到房间广播
		for _, room := range h.rooms {
			if room[client.UserID] == old {
				delete(room, client.UserID)
			}
		}
		old.closeSend()
	}
	return old
}

// Unregister 移除连接
// 仅当该连接仍是用户的当前连接时才移除（避免新连接被旧连接的清理踢掉）
// 返回是否确实移除了当前连接：被替换的旧连接返回false，
// 调用方据此跳过下线广播等清理（用户仍通过新连接在线）
func (h *Hub) Unregister(client *Client) bool {
	h.lock.Lock()
	defer h.lock.Unlock()

	if current, ok := h.clients[client.UserID]; ok && current == client {
		delete(h.clients, client.UserID)
		for convID, room := range h.rooms {
			delete(room, client.UserID)
			if len(room) == 0 {
				delete(h.rooms, convID)
			}
		}
		client.closeSend()
		return true
	}
	return false
}

// JoinRoom 将用户的当前连接加入会话房间
func (h *Hub) JoinRoom(userID, conversationID uint) {
	h.lock.Lock()
	defer h.lock.Unlock()

	client, ok := h.clients[userID]
	if !ok {
		return
	}
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[uint]*Client)
		h.rooms[conversationID] = room
	}
	room[userID] = client
}

// LeaveRoom 将用户的连接移出会话房间
func (h *Hub) LeaveRoom(userID, conversationID uint) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if room, ok := h.rooms[conversationID]; ok {
		delete(room, userID)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// CloseRoom 移除整个会话房间（会话删除后调用，连接本身保持在线）
func (h *Hub) CloseRoom(conversationID uint) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.rooms, conversationID)
}

// Broadcast 向会话房间内所有连接推送事件
func (h *Hub) Broadcast(conversationID uint, msg []byte) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	for _, client := range h.rooms[conversationID] {
		// 发送缓冲已满或连接已关闭时丢弃本条
		client.trySend(msg)
	}
}

// BroadcastGlobal 向所有在线连接推送事件（列表级失效信号、统计更新等）
func (h *Hub) BroadcastGlobal(msg []byte) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	for _, client := range h.clients {
		client.trySend(msg)
	}
}

// SendToUser 向指定用户的当前连接推送事件
func (h *Hub) SendToUser(userID uint, msg []byte) {
	h.lock.RLock()
	client, ok := h.clients[userID]
	h.lock.RUnlock()
	if ok {
		client.trySend(msg)
	}
}

// IsOnline 判断用户是否有在线连接
func (h *Hub) IsOnline(userID uint) bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// OnlineCount 当前在线连接数
func (h *Hub) OnlineCount() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}
