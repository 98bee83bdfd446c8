package websocket

import (
	"encoding/json"
)

// 客户端到服务端事件
const (
	EventJoinChat       = "join-chat"
	EventLeaveChat      = "leave-chat"
	EventTyping         = "user-typing"
	EventRecordingVoice = "user-recording-voice"
	EventSendingPhoto   = "user-sending-photo"
	EventSendingVideo   = "user-sending-video"
	EventHeartbeat      = "heartbeat"
)

// 服务端到客户端事件
const (
	EventUserOnline        = "user-online"
	EventUserBackOnline    = "user-back-online"
	EventUserStatusChanged = "user-status-changed"
	EventStatsUpdate       = "stats-update"
	EventChatsUpdated      = "chats:updated"
	EventError             = "error"
)

// NewMessageEvent 拼接会话类型前缀的消息事件名
// direct会话为 chat:new-message，频道为 nexus:new-message / nexphere:new-message
func NewMessageEvent(kind string) string { return eventName(kind, "new-message") }

// EditMessageEvent 编辑消息事件名
func EditMessageEvent(kind string) string { return eventName(kind, "edit-message") }

// DeleteMessageEvent 删除消息事件名
func DeleteMessageEvent(kind string) string { return eventName(kind, "delete-message") }

// PinMessageEvent 置顶变更事件名
func PinMessageEvent(kind string) string { return eventName(kind, "pin-message") }

// ReactionEvent 表情回应事件名
func ReactionEvent(kind string) string { return eventName(kind, "reaction") }

func eventName(kind, action string) string {
	if kind == "direct" {
		return "chat:" + action
	}
	return kind + ":" + action
}

// Event 序列化事件载荷
// type 字段为事件名，其余字段来自data
func Event(eventType string, data map[string]interface{}) []byte {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["type"] = eventType
	b, err := json.Marshal(payload)
	if err != nil {
		// data全部来自内部构造，序列化失败属于编程错误
		return []byte(`{"type":"` + eventType + `"}`)
	}
	return b
}
