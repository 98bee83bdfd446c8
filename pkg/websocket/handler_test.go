package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nexchat/config"
	"nexchat/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// allowAllMembers 放行所有成员校验
type allowAllMembers struct{}

func (allowAllMembers) IsMember(conversationID, userID uint) (bool, error) { return true, nil }

// statusRecorder 记录SetStatus调用的状态序列
type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
}

func (r *statusRecorder) SetStatus(userID uint, status string, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *statusRecorder) has(status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.statuses {
		if s == status {
			return true
		}
	}
	return false
}

func newWSTestServer(t *testing.T, recorder *statusRecorder) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc := jwt.NewJWTService(config.JWTConfig{
		Secret:     "test-secret",
		ExpireTime: time.Hour,
		Issuer:     "nexchat-test",
	})
	token, err := jwtSvc.GenerateToken("7", map[string]interface{}{"username": "nova"})
	if err != nil {
		t.Fatalf("生成token失败: %v", err)
	}

	hub := NewHub()
	tracker := NewTracker(50*time.Millisecond, 50*time.Millisecond, func(userID, conversationID uint) {})
	h := NewHandler(hub, tracker, jwtSvc, allowAllMembers{}, recorder, config.WebSocketConfig{
		PingInterval: time.Minute,
		ReadTimeout:  time.Minute,
	})

	router := gin.New()
	router.GET("/ws", h.Serve)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return hub, wsURL
}

// collectEvents 在给定时间窗口内读取连接上的所有事件
func collectEvents(conn *websocket.Conn, window time.Duration) []map[string]interface{} {
	var events []map[string]interface{}
	deadline := time.Now().Add(window)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return events
		}
		var ev map[string]interface{}
		if json.Unmarshal(payload, &ev) == nil {
			events = append(events, ev)
		}
	}
}

// 同一用户重连后，被替换的旧连接不得触发下线广播与离线状态落库
func TestReconnectDoesNotBroadcastOffline(t *testing.T) {
	recorder := &statusRecorder{}
	hub, wsURL := newWSTestServer(t, recorder)

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("第一次连接失败: %v", err)
	}
	defer conn1.Close()

	// 等到第一条连接收到自己的上线广播，确认注册已完成
	_ = conn1.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn1.ReadMessage(); err != nil {
		t.Fatalf("第一次连接未收到上线广播: %v", err)
	}

	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("第二次连接失败: %v", err)
	}
	defer conn2.Close()

	// 旧连接的清理已经（或即将）发生；在窗口期内收集新连接收到的广播
	events := collectEvents(conn2, 500*time.Millisecond)

	for _, ev := range events {
		if ev["type"] == EventUserStatusChanged && ev["status"] == "offline" {
			t.Fatalf("重连后用户仍在线，却收到下线广播: %v", ev)
		}
	}
	if !hub.IsOnline(7) {
		t.Fatal("重连后用户应保持在线")
	}
	if recorder.has("offline") {
		t.Fatal("被替换连接不应落库offline状态")
	}
}

// 最后一条连接正常断开时仍走完整下线路径
func TestDisconnectRecordsOffline(t *testing.T) {
	recorder := &statusRecorder{}
	hub, wsURL := newWSTestServer(t, recorder)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("连接失败: %v", err)
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if recorder.has("offline") && !hub.IsOnline(7) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("断开连接后未记录offline状态")
}
