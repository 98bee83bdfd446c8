package service

import (
	"errors"
	"fmt"
	"testing"

	"nexchat/internal/model"
	"nexchat/pkg/apperr"
)

func TestSendAndList(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}

	first, err := env.messages.Send(conv.ID, alice.ID, SendInput{Text: "你好"})
	if err != nil {
		t.Fatalf("发送消息失败: %v", err)
	}
	second, err := env.messages.Send(conv.ID, bob.ID, SendInput{Text: "收到"})
	if err != nil {
		t.Fatalf("回复消息失败: %v", err)
	}

	rows, err := env.messages.List(conv.ID, alice.ID, 1, 50)
	if err != nil {
		t.Fatalf("读取消息历史失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("消息条数 = %d, 期望 2", len(rows))
	}
	// 页内时间正序
	if rows[0].ID != first.ID || rows[1].ID != second.ID {
		t.Fatalf("页内顺序错误: [%d %d], 期望 [%d %d]", rows[0].ID, rows[1].ID, first.ID, second.ID)
	}
	if rows[0].AuthorName != "alice" {
		t.Fatalf("author_name = %q, 期望 alice", rows[0].AuthorName)
	}
}

func TestSendEmptyContent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}

	if _, err := env.messages.Send(conv.ID, alice.ID, SendInput{Text: "   "}); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("空内容期望Invalid, 得到: %v", err)
	}
	// 贴纸可以单独发送
	if _, err := env.messages.Send(conv.ID, alice.ID, SendInput{Sticker: "wave"}); err != nil {
		t.Fatalf("发送贴纸失败: %v", err)
	}
}

func TestSendNonMember(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")
	eve := env.mustRegister(t, "eve")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}

	if _, err := env.messages.Send(conv.ID, eve.ID, SendInput{Text: "入侵"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非成员发送期望Forbidden, 得到: %v", err)
	}
	if _, err := env.messages.List(conv.ID, eve.ID, 1, 50); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非成员读取期望Forbidden, 得到: %v", err)
	}
}

func TestReplyToCrossConversation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")
	eve := env.mustRegister(t, "eve")

	convAB, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}
	convAE, err := env.convs.GetOrCreateDirect(alice.ID, eve.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}

	origin, err := env.messages.Send(convAB.ID, alice.ID, SendInput{Text: "原始消息"})
	if err != nil {
		t.Fatalf("发送消息失败: %v", err)
	}

	// 同会话内回复正常
	reply, err := env.messages.Send(convAB.ID, bob.ID, SendInput{Text: "回复", ReplyToID: &origin.ID})
	if err != nil {
		t.Fatalf("回复失败: %v", err)
	}
	if reply.ReplyToID == nil || *reply.ReplyToID != origin.ID {
		t.Fatal("回复引用未保存")
	}

	// 跨会话回复被拒绝
	if _, err := env.messages.Send(convAE.ID, alice.ID, SendInput{Text: "串会话", ReplyToID: &origin.ID}); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("跨会话回复期望Invalid, 得到: %v", err)
	}
}

func TestListPagination(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}
	var ids []uint
	for i := 0; i < 5; i++ {
		m, err := env.messages.Send(conv.ID, alice.ID, SendInput{Text: fmt.Sprintf("msg-%d", i)})
		if err != nil {
			t.Fatalf("发送消息失败: %v", err)
		}
		ids = append(ids, m.ID)
	}

	// 第一页最新2条，页内正序
	page1, err := env.messages.List(conv.ID, bob.ID, 1, 2)
	if err != nil {
		t.Fatalf("读取第一页失败: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != ids[3] || page1[1].ID != ids[4] {
		t.Fatalf("第一页内容错误: %v", page1)
	}
	page2, err := env.messages.List(conv.ID, bob.ID, 2, 2)
	if err != nil {
		t.Fatalf("读取第二页失败: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != ids[1] || page2[1].ID != ids[2] {
		t.Fatalf("第二页内容错误: %v", page2)
	}

	// 非法分页参数回落默认值，不报错
	if _, err := env.messages.List(conv.ID, bob.ID, -1, 100000); err != nil {
		t.Fatalf("非法分页参数应回落默认值: %v", err)
	}
}

func TestEditOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}
	msg, err := env.messages.Send(conv.ID, alice.ID, SendInput{Text: "初稿"})
	if err != nil {
		t.Fatalf("发送消息失败: %v", err)
	}

	// 非作者不可编辑
	if _, err := env.messages.Edit(msg.ID, bob.ID, "篡改"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非作者编辑期望Forbidden, 得到: %v", err)
	}

	edited, err := env.messages.Edit(msg.ID, alice.ID, "终稿")
	if err != nil {
		t.Fatalf("作者编辑失败: %v", err)
	}
	if edited.Text != "终稿" {
		t.Fatalf("编辑后文本 = %q, 期望 终稿", edited.Text)
	}
	if edited.EditedAt == nil {
		t.Fatal("编辑后未记录编辑时间")
	}

	if _, err := env.messages.Edit(msg.ID, alice.ID, "  "); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("空文本编辑期望Invalid, 得到: %v", err)
	}
}

// 删除权限矩阵：作者可删；频道owner可删他人消息；私聊非作者不可删
func TestDeleteOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	direct, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}
	directMsg, err := env.messages.Send(direct.ID, alice.ID, SendInput{Text: "私聊消息"})
	if err != nil {
		t.Fatalf("发送消息失败: %v", err)
	}

	if err := env.messages.Delete(directMsg.ID, bob.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("私聊非作者删除期望Forbidden, 得到: %v", err)
	}
	if err := env.messages.Delete(directMsg.ID, alice.ID); err != nil {
		t.Fatalf("作者删除失败: %v", err)
	}
	// 硬删除后消息不存在
	if err := env.messages.Delete(directMsg.ID, alice.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("重复删除期望NotFound, 得到: %v", err)
	}

	channel, err := env.convs.CreateChannel(model.KindNexphere, "讨论", "discuss-del", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}
	if err := env.convs.Join(channel.ID, bob.ID); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	bobMsg, err := env.messages.Send(channel.ID, bob.ID, SendInput{Text: "成员消息"})
	if err != nil {
		t.Fatalf("发送消息失败: %v", err)
	}

	// 频道owner可删他人消息
	if err := env.messages.Delete(bobMsg.ID, alice.ID); err != nil {
		t.Fatalf("owner删除成员消息失败: %v", err)
	}
}

// 置顶仅频道支持；作者或owner可操作；再次置顶取消
func TestTogglePin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")
	eve := env.mustRegister(t, "eve")

	channel, err := env.convs.CreateChannel(model.KindNexphere, "讨论", "discuss-pin", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}
	for _, uid := range []uint{bob.ID, eve.ID} {
		if err := env.convs.Join(channel.ID, uid); err != nil {
			t.Fatalf("加入失败: %v", err)
		}
	}
	msg, err := env.messages.Send(channel.ID, bob.ID, SendInput{Text: "重要"})
	if err != nil {
		t.Fatalf("发送消息失败: %v", err)
	}

	// 普通成员（非作者）不可置顶
	if _, err := env.messages.TogglePin(msg.ID, eve.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("普通成员置顶期望Forbidden, 得到: %v", err)
	}

	pinned, err := env.messages.TogglePin(msg.ID, bob.ID)
	if err != nil {
		t.Fatalf("作者置顶失败: %v", err)
	}
	if !pinned {
		t.Fatal("首次toggle应为置顶")
	}

	rows, err := env.messages.ListPinned(channel.ID, eve.ID)
	if err != nil {
		t.Fatalf("置顶列表失败: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != msg.ID {
		t.Fatalf("置顶列表内容错误: %v", rows)
	}

	pinned, err = env.messages.TogglePin(msg.ID, alice.ID)
	if err != nil {
		t.Fatalf("owner取消置顶失败: %v", err)
	}
	if pinned {
		t.Fatal("再次toggle应取消置顶")
	}

	// 私聊不支持置顶
	direct, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}
	directMsg, err := env.messages.Send(direct.ID, alice.ID, SendInput{Text: "hi"})
	if err != nil {
		t.Fatalf("发送消息失败: %v", err)
	}
	if _, err := env.messages.TogglePin(directMsg.ID, alice.ID); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("私聊置顶期望Invalid, 得到: %v", err)
	}
}

func TestToggleReaction(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")
	eve := env.mustRegister(t, "eve")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}
	msg, err := env.messages.Send(conv.ID, alice.ID, SendInput{Text: "hi"})
	if err != nil {
		t.Fatalf("发送消息失败: %v", err)
	}

	added, err := env.messages.ToggleReaction(msg.ID, bob.ID, "👍")
	if err != nil {
		t.Fatalf("添加回应失败: %v", err)
	}
	if !added {
		t.Fatal("首次toggle应为添加")
	}
	added, err = env.messages.ToggleReaction(msg.ID, bob.ID, "👍")
	if err != nil {
		t.Fatalf("取消回应失败: %v", err)
	}
	if added {
		t.Fatal("再次toggle应为移除")
	}

	// 非成员不可回应
	if _, err := env.messages.ToggleReaction(msg.ID, eve.ID, "👍"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非成员回应期望Forbidden, 得到: %v", err)
	}
}

func TestSendAttachment(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}

	msg, err := env.messages.SendAttachment(conv.ID, alice.ID, "/uploads/abc123.png", "照片.png", "看这个")
	if err != nil {
		t.Fatalf("发送附件失败: %v", err)
	}
	if msg.MsgType != model.MsgTypeFile {
		t.Fatalf("消息类型 = %q, 期望 file", msg.MsgType)
	}
	if msg.AttachmentName != "照片.png" || msg.AttachmentPath != "/uploads/abc123.png" {
		t.Fatal("附件字段未保存")
	}

	if _, err := env.messages.SendAttachment(conv.ID, alice.ID, "", "x.png", ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("空附件路径期望Invalid, 得到: %v", err)
	}
}
