package websocket

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"nexchat/config"
	"nexchat/pkg/jwt"
	"nexchat/pkg/logger"
	"nexchat/pkg/redis"
	"nexchat/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// MembershipChecker 房间加入前的成员校验
type MembershipChecker interface {
	IsMember(conversationID, userID uint) (bool, error)
}

// StatusRecorder 连接建立/断开时更新用户的持久化状态
type StatusRecorder interface {
	SetStatus(userID uint, status string, lastSeen time.Time) error
}

// Handler WebSocket入口
// 依赖在 main 中构造并注入，不使用包级全局
type Handler struct {
	hub     *Hub
	tracker *Tracker
	jwtSvc  *jwt.JWTService
	members MembershipChecker
	status  StatusRecorder
	cfg     config.WebSocketConfig
}

// NewHandler 创建WebSocket处理器
func NewHandler(hub *Hub, tracker *Tracker, jwtSvc *jwt.JWTService, members MembershipChecker, status StatusRecorder, cfg config.WebSocketConfig) *Handler {
	return &Handler{
		hub:     hub,
		tracker: tracker,
		jwtSvc:  jwtSvc,
		members: members,
		status:  status,
		cfg:     cfg,
	}
}

// inboundEvent 客户端事件载荷
type inboundEvent struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
}

// Serve Gin路由处理函数：握手、收发循环、状态广播
func (h *Handler) Serve(c *gin.Context) {
	token := jwt.ExtractToken(c)
	if token == "" {
		response.Unauthorized(c, "缺少认证令牌")
		return
	}

	claims, err := h.jwtSvc.ValidateToken(token)
	if err != nil {
		response.Unauthorized(c, "token无效或已过期")
		return
	}
	userID64, _ := strconv.ParseUint(claims.Subject, 10, 32)
	if userID64 == 0 {
		response.Unauthorized(c, "token无效")
		return
	}
	userID := uint(userID64)
	username := ""
	if claims.Data != nil {
		if u, ok := claims.Data["username"].(string); ok {
			username = u
		}
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	// 同一用户的旧连接被替换时关闭旧socket
	if old := h.hub.Register(client); old != nil {
		_ = old.Conn.Close()
	}

	// 上线：更新持久化状态与Redis在线状态，广播给所有客户端
	if h.status != nil {
		_ = h.status.SetStatus(userID, "online", time.Now())
	}
	_ = redis.SetUserPresence(userID, username, "online")
	h.hub.BroadcastGlobal(Event(EventUserOnline, map[string]interface{}{
		"user_id":  userID,
		"username": username,
	}))
	h.hub.BroadcastGlobal(Event(EventUserStatusChanged, map[string]interface{}{
		"user_id": userID,
		"status":  "online",
	}))
	h.broadcastStats()

	defer func() {
		// 连接已被同一用户的新连接替换时不走下线路径：
		// 用户仍然在线，状态由新连接负责
		if !h.hub.Unregister(client) {
			return
		}
		h.tracker.Clear(userID)

		// 下线：记录最近在线时间并广播（带可读时间格式）
		lastSeen := time.Now()
		if h.status != nil {
			_ = h.status.SetStatus(userID, "offline", lastSeen)
		}
		_ = redis.SetUserPresence(userID, username, "offline")
		h.hub.BroadcastGlobal(Event(EventUserStatusChanged, map[string]interface{}{
			"user_id":   userID,
			"status":    "offline",
			"last_seen": lastSeen.Format("2006-01-02 15:04:05"),
		}))
		h.broadcastStats()
	}()

	// 写协程 + 定时发送ping心跳
	// ping失败直接关闭连接促使读循环退出，清理统一走Serve的defer
	go func() {
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				_ = conn.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	// 读循环（接收心跳/房间加入/活动事件）。若超时未收到任何读事件则断开
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		var ev inboundEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			h.sendError(client, "事件格式错误")
			continue
		}
		h.handleEvent(client, username, &ev)
	}

	_ = conn.Close()
}

// handleEvent 处理单个客户端事件
// 任何错误只影响本连接：记日志并回发error事件，进程不受影响
func (h *Handler) handleEvent(client *Client, username string, ev *inboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("WebSocket事件处理panic",
				zap.Uint("user_id", client.UserID),
				zap.String("event", ev.Type),
				zap.Any("panic", r),
			)
			h.sendError(client, "事件处理失败")
		}
	}()

	switch ev.Type {
	case EventJoinChat:
		ok, err := h.members.IsMember(ev.ConversationID, client.UserID)
		if err != nil {
			h.sendError(client, "成员校验失败")
			return
		}
		if !ok {
			h.sendError(client, "无权加入该会话")
			return
		}
		h.hub.JoinRoom(client.UserID, ev.ConversationID)

	case EventLeaveChat:
		h.hub.LeaveRoom(client.UserID, ev.ConversationID)

	case EventTyping, EventRecordingVoice, EventSendingPhoto, EventSendingVideo:
		h.handleActivity(client, ev)

	case EventHeartbeat:
		// 刷新用户在线状态（延长TTL）
		_ = redis.RefreshUserPresence(client.UserID)
		if h.status != nil {
			_ = h.status.SetStatus(client.UserID, "online", time.Now())
		}

	default:
		h.sendError(client, "未知事件: "+ev.Type)
	}
}

// handleActivity 活动事件：记入tracker并向房间广播
func (h *Handler) handleActivity(client *Client, ev *inboundEvent) {
	ok, err := h.members.IsMember(ev.ConversationID, client.UserID)
	if err != nil || !ok {
		h.sendError(client, "无权操作该会话")
		return
	}

	kind := activityKind(ev.Type)
	h.tracker.Mark(client.UserID, kind, ev.ConversationID)
	h.hub.Broadcast(ev.ConversationID, Event(ev.Type, map[string]interface{}{
		"user_id":         client.UserID,
		"conversation_id": ev.ConversationID,
	}))
}

// activityKind 事件名映射到活动种类
func activityKind(eventType string) string {
	switch eventType {
	case EventRecordingVoice:
		return ActivityRecordingVoice
	case EventSendingPhoto:
		return ActivitySendingPhoto
	case EventSendingVideo:
		return ActivitySendingVideo
	default:
		return ActivityTyping
	}
}

// sendError 向单个连接回发错误事件
// trySend在连接被替换关闭后安全丢弃，不会向已关闭通道发送
func (h *Handler) sendError(client *Client, message string) {
	client.trySend(Event(EventError, map[string]interface{}{"message": message}))
}

// broadcastStats 广播全局统计（在线人数等，管理面板实时刷新用）
func (h *Handler) broadcastStats() {
	h.hub.BroadcastGlobal(Event(EventStatsUpdate, map[string]interface{}{
		"online": h.hub.OnlineCount(),
	}))
}
