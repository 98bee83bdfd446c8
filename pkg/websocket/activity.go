package websocket

import (
	"sync"
	"time"
)

// 活动状态种类
const (
	ActivityTyping         = "typing"
	ActivityRecordingVoice = "recording-voice"
	ActivitySendingPhoto   = "sending-photo"
	ActivitySendingVideo   = "sending-video"
)

// activityEntry 单个用户的瞬时活动状态
// generation 用于let旧定时器识别自己已被更新的活动取代
type activityEntry struct {
	kind           string
	conversationID uint
	generation     uint64
}

// Tracker 跟踪用户的瞬时活动状态（输入中/录音中等）
// Mark 后在固定延迟内若无新的活动事件，状态自动回退为 online 并触发一次回调
// 定时器不取消，触发时重读当前状态，仅当自己仍是最新一代时回退（last-kind-wins）
type Tracker struct {
	mu           sync.Mutex
	entries      map[uint]*activityEntry
	typingRevert time.Duration // typing/recording-voice/sending-video
	mediaRevert  time.Duration // sending-photo
	onRevert     func(userID, conversationID uint)
}

// NewTracker 创建活动状态跟踪器
// onRevert 在状态回退为 online 时被调用（每次Mark至多一次）
func NewTracker(typingRevert, mediaRevert time.Duration, onRevert func(userID, conversationID uint)) *Tracker {
	return &Tracker{
		entries:      make(map[uint]*activityEntry),
		typingRevert: typingRevert,
		mediaRevert:  mediaRevert,
		onRevert:     onRevert,
	}
}

// Mark 记录用户的活动状态并调度回退
func (t *Tracker) Mark(userID uint, kind string, conversationID uint) {
	t.mu.Lock()
	entry, ok := t.entries[userID]
	if !ok {
		entry = &activityEntry{}
		t.entries[userID] = entry
	}
	entry.kind = kind
	entry.conversationID = conversationID
	entry.generation++
	gen := entry.generation
	t.mu.Unlock()

	delay := t.typingRevert
	if kind == ActivitySendingPhoto {
		delay = t.mediaRevert
	}

	time.AfterFunc(delay, func() {
		t.revert(userID, gen)
	})
}

// revert 定时器回调：仅当自己仍是最新一代时回退
func (t *Tracker) revert(userID uint, generation uint64) {
	t.mu.Lock()
	entry, ok := t.entries[userID]
	if !ok || entry.generation != generation {
		t.mu.Unlock()
		return
	}
	conversationID := entry.conversationID
	delete(t.entries, userID)
	t.mu.Unlock()

	if t.onRevert != nil {
		t.onRevert(userID, conversationID)
	}
}

// Kind 获取用户当前活动状态，无活动时返回空串
func (t *Tracker) Kind(userID uint) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[userID]; ok {
		return entry.kind
	}
	return ""
}

// Clear 清除用户的活动状态（断开连接时调用，不触发回调）
func (t *Tracker) Clear(userID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, userID)
}
