package websocket

import (
	"sync"
	"testing"
	"time"
)

type revertRecorder struct {
	mu    sync.Mutex
	calls []uint
}

func (r *revertRecorder) record(userID, conversationID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID)
}

func (r *revertRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestTrackerRevertAfterDelay(t *testing.T) {
	rec := &revertRecorder{}
	tracker := NewTracker(20*time.Millisecond, 10*time.Millisecond, rec.record)

	tracker.Mark(1, ActivityTyping, 100)
	if got := tracker.Kind(1); got != ActivityTyping {
		t.Fatalf("Kind = %q, 期望 typing", got)
	}

	time.Sleep(60 * time.Millisecond)
	if got := tracker.Kind(1); got != "" {
		t.Fatalf("回退后 Kind = %q, 期望空", got)
	}
	if rec.count() != 1 {
		t.Fatalf("回退回调次数 = %d, 期望 1", rec.count())
	}
}

// 连续Mark只触发一次回退（最后一次活动生效）
func TestTrackerLastKindWins(t *testing.T) {
	rec := &revertRecorder{}
	tracker := NewTracker(30*time.Millisecond, 10*time.Millisecond, rec.record)

	tracker.Mark(1, ActivityTyping, 100)
	time.Sleep(10 * time.Millisecond)
	tracker.Mark(1, ActivityRecordingVoice, 100)
	if got := tracker.Kind(1); got != ActivityRecordingVoice {
		t.Fatalf("Kind = %q, 期望 recording-voice", got)
	}

	// 第一个定时器到期时状态已更新，不应回退
	time.Sleep(25 * time.Millisecond)
	if got := tracker.Kind(1); got != ActivityRecordingVoice {
		t.Fatalf("旧定时器不应回退新状态, Kind = %q", got)
	}

	time.Sleep(40 * time.Millisecond)
	if got := tracker.Kind(1); got != "" {
		t.Fatalf("最终未回退, Kind = %q", got)
	}
	if rec.count() != 1 {
		t.Fatalf("回退回调次数 = %d, 期望恰好 1", rec.count())
	}
}

// 发送图片使用更短的回退延迟
func TestTrackerMediaRevertDelay(t *testing.T) {
	rec := &revertRecorder{}
	tracker := NewTracker(200*time.Millisecond, 20*time.Millisecond, rec.record)

	tracker.Mark(1, ActivitySendingPhoto, 100)
	time.Sleep(60 * time.Millisecond)
	if got := tracker.Kind(1); got != "" {
		t.Fatalf("photo状态应按短延迟回退, Kind = %q", got)
	}
}

// Clear不触发回调
func TestTrackerClear(t *testing.T) {
	rec := &revertRecorder{}
	tracker := NewTracker(20*time.Millisecond, 10*time.Millisecond, rec.record)

	tracker.Mark(1, ActivityTyping, 100)
	tracker.Clear(1)
	if got := tracker.Kind(1); got != "" {
		t.Fatalf("Clear后 Kind = %q, 期望空", got)
	}

	time.Sleep(50 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("Clear后不应触发回调, 次数 = %d", rec.count())
	}
}

func TestTrackerIndependentUsers(t *testing.T) {
	rec := &revertRecorder{}
	tracker := NewTracker(50*time.Millisecond, 10*time.Millisecond, rec.record)

	tracker.Mark(1, ActivityTyping, 100)
	tracker.Mark(2, ActivitySendingVideo, 200)

	if tracker.Kind(1) != ActivityTyping || tracker.Kind(2) != ActivitySendingVideo {
		t.Fatal("不同用户的状态互相干扰")
	}
	tracker.Clear(1)
	if tracker.Kind(2) != ActivitySendingVideo {
		t.Fatal("Clear影响了其他用户")
	}
}
