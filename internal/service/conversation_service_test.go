package service

import (
	"errors"
	"testing"

	"nexchat/internal/model"
	"nexchat/pkg/apperr"
	"nexchat/pkg/websocket"
)

// 两个方向发起的私聊必须收敛到同一会话
func TestGetOrCreateDirectIdempotent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	first, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("首次创建私聊失败: %v", err)
	}
	second, err := env.convs.GetOrCreateDirect(bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("反向获取私聊失败: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("两个方向得到不同会话: %d vs %d", first.ID, second.ID)
	}

	for _, uid := range []uint{alice.ID, bob.ID} {
		ok, err := env.convs.IsMember(first.ID, uid)
		if err != nil {
			t.Fatalf("成员查询失败: %v", err)
		}
		if !ok {
			t.Fatalf("用户 %d 不是私聊成员", uid)
		}
	}
}

func TestGetOrCreateDirectWithSelf(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")

	_, err := env.convs.GetOrCreateDirect(alice.ID, alice.ID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("与自己私聊期望Conflict, 得到: %v", err)
	}
}

func TestGetOrCreateDirectUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")

	_, err := env.convs.GetOrCreateDirect(alice.ID, 9999)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("与不存在用户私聊期望NotFound, 得到: %v", err)
	}
}

func TestNormalizeHandle(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"golang", "golang", false},
		{"GoLang-42", "golang-42", false},
		{"with_underscore", "with_underscore", false},
		{"  spaced  ", "spaced", false},
		{"ab1", "", true},                  // 过短
		{"12345", "", true},                // 没有字母
		{"has space", "", true},            // 非法字符
		{"emoji😀name", "", true},           // 非ASCII
		{"a234567890123456789012345678901", "", true}, // 过长
	}
	for _, c := range cases {
		got, err := NormalizeHandle(c.in)
		if c.wantErr {
			if !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("NormalizeHandle(%q) 期望Invalid, 得到: %v", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeHandle(%q) 意外失败: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeHandle(%q) = %q, 期望 %q", c.in, got, c.want)
		}
	}
}

// handle大小写不敏感唯一，同类型不可重复，不同类型可共存
func TestCreateChannelHandleUniqueness(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")

	conv, err := env.convs.CreateChannel(model.KindNexphere, "Go爱好者", "GoFans", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}
	if conv.Handle == nil || *conv.Handle != "gofans" {
		t.Fatalf("handle未小写规范化: %v", conv.Handle)
	}

	if _, err := env.convs.CreateChannel(model.KindNexphere, "另一个", "GOFANS", "", alice.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("同类型重复handle期望Conflict, 得到: %v", err)
	}
	if _, err := env.convs.CreateChannel(model.KindNexus, "广播版", "gofans", "", alice.ID); err != nil {
		t.Fatalf("不同类型同handle应当允许: %v", err)
	}
}

func TestCreateChannelValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")

	if _, err := env.convs.CreateChannel(model.KindNexphere, "  ", "validhandle", "", alice.ID); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("空标题期望Invalid, 得到: %v", err)
	}
	if _, err := env.convs.CreateChannel("mystery", "标题", "validhandle", "", alice.ID); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("未知类型期望Invalid, 得到: %v", err)
	}
}

// 创建者自动成为owner；按类型授予加入角色
func TestJoinRoles(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	nexus, err := env.convs.CreateChannel(model.KindNexus, "公告", "announce-1", "", alice.ID)
	if err != nil {
		t.Fatalf("创建nexus失败: %v", err)
	}
	nexphere, err := env.convs.CreateChannel(model.KindNexphere, "讨论", "discuss-1", "", alice.ID)
	if err != nil {
		t.Fatalf("创建nexphere失败: %v", err)
	}

	if err := env.convs.Join(nexus.ID, bob.ID); err != nil {
		t.Fatalf("加入nexus失败: %v", err)
	}
	if err := env.convs.Join(nexphere.ID, bob.ID); err != nil {
		t.Fatalf("加入nexphere失败: %v", err)
	}
	// 重复加入幂等
	if err := env.convs.Join(nexus.ID, bob.ID); err != nil {
		t.Fatalf("重复加入应当幂等: %v", err)
	}

	members, err := env.convs.Members(nexus.ID, alice.ID)
	if err != nil {
		t.Fatalf("成员列表失败: %v", err)
	}
	roles := map[uint]string{}
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	if roles[alice.ID] != model.RoleOwner {
		t.Fatalf("创建者角色 = %q, 期望owner", roles[alice.ID])
	}
	if roles[bob.ID] != model.RoleSubscriber {
		t.Fatalf("nexus加入者角色 = %q, 期望subscriber", roles[bob.ID])
	}

	members, err = env.convs.Members(nexphere.ID, alice.ID)
	if err != nil {
		t.Fatalf("成员列表失败: %v", err)
	}
	for _, m := range members {
		if m.UserID == bob.ID && m.Role != model.RoleMember {
			t.Fatalf("nexphere加入者角色 = %q, 期望member", m.Role)
		}
	}
}

// 非成员访问一律Forbidden，不区分会话是否存在
func TestNonMemberForbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")
	eve := env.mustRegister(t, "eve")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}

	if err := env.convs.RequireMember(conv.ID, eve.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非成员期望Forbidden, 得到: %v", err)
	}
	// 不存在的会话与无权会话表现一致
	if err := env.convs.RequireMember(9999, eve.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("不存在的会话期望Forbidden, 得到: %v", err)
	}
	if _, err := env.convs.Members(conv.ID, eve.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非成员查看成员列表期望Forbidden, 得到: %v", err)
	}
}

// owner是最后一名成员时不能退出
func TestLeaveOwnerSoleMember(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.CreateChannel(model.KindNexphere, "讨论", "discuss-2", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}

	if err := env.convs.Leave(conv.ID, alice.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("唯一成员的owner退出期望Conflict, 得到: %v", err)
	}

	if err := env.convs.Join(conv.ID, bob.ID); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if err := env.convs.Leave(conv.ID, bob.ID); err != nil {
		t.Fatalf("普通成员退出失败: %v", err)
	}
	ok, err := env.convs.IsMember(conv.ID, bob.ID)
	if err != nil {
		t.Fatalf("成员查询失败: %v", err)
	}
	if ok {
		t.Fatal("退出后仍是成员")
	}
}

func TestRemoveMemberPermissions(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")
	eve := env.mustRegister(t, "eve")

	conv, err := env.convs.CreateChannel(model.KindNexphere, "讨论", "discuss-3", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}
	for _, uid := range []uint{bob.ID, eve.ID} {
		if err := env.convs.Join(conv.ID, uid); err != nil {
			t.Fatalf("加入失败: %v", err)
		}
	}

	// 普通成员不能移除他人
	if err := env.convs.RemoveMember(conv.ID, bob.ID, eve.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("普通成员移除他人期望Forbidden, 得到: %v", err)
	}
	// owner不能被移除
	if err := env.convs.RemoveMember(conv.ID, alice.ID, alice.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("移除owner期望Forbidden, 得到: %v", err)
	}
	// owner可以移除普通成员
	if err := env.convs.RemoveMember(conv.ID, alice.ID, eve.ID); err != nil {
		t.Fatalf("owner移除成员失败: %v", err)
	}
	ok, err := env.convs.IsMember(conv.ID, eve.ID)
	if err != nil {
		t.Fatalf("成员查询失败: %v", err)
	}
	if ok {
		t.Fatal("被移除后仍是成员")
	}
}

func TestUpdateChannelPermissions(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.CreateChannel(model.KindNexphere, "旧标题", "discuss-4", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}
	if err := env.convs.Join(conv.ID, bob.ID); err != nil {
		t.Fatalf("加入失败: %v", err)
	}

	title := "新标题"
	if _, err := env.convs.UpdateChannel(conv.ID, bob.ID, &title, nil); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("普通成员修改频道期望Forbidden, 得到: %v", err)
	}
	updated, err := env.convs.UpdateChannel(conv.ID, alice.ID, &title, nil)
	if err != nil {
		t.Fatalf("owner修改频道失败: %v", err)
	}
	if updated.Title != "新标题" {
		t.Fatalf("标题 = %q, 期望 新标题", updated.Title)
	}
}

func TestDeleteChannelOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.CreateChannel(model.KindNexus, "公告", "announce-2", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}
	if err := env.convs.Join(conv.ID, bob.ID); err != nil {
		t.Fatalf("加入失败: %v", err)
	}

	if err := env.convs.DeleteChannel(conv.ID, bob.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非owner删除频道期望Forbidden, 得到: %v", err)
	}
	if err := env.convs.DeleteChannel(conv.ID, alice.ID); err != nil {
		t.Fatalf("owner删除频道失败: %v", err)
	}
	if _, err := env.convs.GetChannel(conv.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("删除后获取频道期望NotFound, 得到: %v", err)
	}
}

func TestGetChannelByHandle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")

	created, err := env.convs.CreateChannel(model.KindNexphere, "讨论", "FindMe-42", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}

	found, err := env.convs.GetChannelByHandle(model.KindNexphere, "FINDME-42")
	if err != nil {
		t.Fatalf("按handle查找失败: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("查到的会话ID = %d, 期望 %d", found.ID, created.ID)
	}
	if _, err := env.convs.GetChannelByHandle(model.KindNexus, "findme-42"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("不同类型查找期望NotFound, 得到: %v", err)
	}
}

func TestMemberCount(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.CreateChannel(model.KindNexphere, "讨论", "count-me", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}
	count, err := env.convs.MemberCount(conv.ID)
	if err != nil || count != 1 {
		t.Fatalf("MemberCount = %d, %v, 期望 1", count, err)
	}

	if err := env.convs.Join(conv.ID, bob.ID); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	count, err = env.convs.MemberCount(conv.ID)
	if err != nil || count != 2 {
		t.Fatalf("加入后MemberCount = %d, %v, 期望 2", count, err)
	}
}

// 删除频道后房间被清空，残留连接不再收到该会话的广播
func TestDeleteChannelClosesRoom(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.CreateChannel(model.KindNexphere, "讨论", "close-room", "", alice.ID)
	if err != nil {
		t.Fatalf("创建频道失败: %v", err)
	}
	if err := env.convs.Join(conv.ID, bob.ID); err != nil {
		t.Fatalf("加入失败: %v", err)
	}

	bobClient := &websocket.Client{UserID: bob.ID, Send: make(chan []byte, 16)}
	env.hub.Register(bobClient)
	env.hub.JoinRoom(bob.ID, conv.ID)

	if err := env.convs.DeleteChannel(conv.ID, alice.ID); err != nil {
		t.Fatalf("删除频道失败: %v", err)
	}

	// 丢弃删除时的全局通知，再验证房间广播已无人接收
	for len(bobClient.Send) > 0 {
		<-bobClient.Send
	}
	env.hub.Broadcast(conv.ID, []byte("ghost"))
	if len(bobClient.Send) != 0 {
		t.Fatal("删除频道后房间内连接仍收到广播")
	}
}

// 删除私聊后同样清空房间
func TestDeleteDirectClosesRoom(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustRegister(t, "alice")
	bob := env.mustRegister(t, "bob")

	conv, err := env.convs.GetOrCreateDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("创建私聊失败: %v", err)
	}

	bobClient := &websocket.Client{UserID: bob.ID, Send: make(chan []byte, 16)}
	env.hub.Register(bobClient)
	env.hub.JoinRoom(bob.ID, conv.ID)

	if err := env.convs.DeleteDirect(conv.ID, alice.ID); err != nil {
		t.Fatalf("删除私聊失败: %v", err)
	}

	for len(bobClient.Send) > 0 {
		<-bobClient.Send
	}
	env.hub.Broadcast(conv.ID, []byte("ghost"))
	if len(bobClient.Send) != 0 {
		t.Fatal("删除私聊后房间内连接仍收到广播")
	}
}
