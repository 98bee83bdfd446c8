package service

import (
	"errors"
	"strings"

	"nexchat/internal/model"
	"nexchat/internal/repository"
	"nexchat/pkg/apperr"
	"nexchat/pkg/redis"
	"nexchat/pkg/websocket"
)

// ConversationService 会话网关
// 所有会话读写操作先做成员校验，非成员一律返回Forbidden（不区分会话是否存在，避免探测）
// Hub 由 main 构造后注入，服务层只在写入提交成功后才广播
type ConversationService struct {
	convRepo *repository.ConversationRepository
	userRepo *repository.UserRepository
	msgRepo  *repository.MessageRepository
	hub      *websocket.Hub
}

// NewConversationService 创建ConversationService实例
func NewConversationService(convRepo *repository.ConversationRepository, userRepo *repository.UserRepository, msgRepo *repository.MessageRepository, hub *websocket.Hub) *ConversationService {
	return &ConversationService{
		convRepo: convRepo,
		userRepo: userRepo,
		msgRepo:  msgRepo,
		hub:      hub,
	}
}

// RequireMember 成员校验，非成员返回Forbidden
// 故意不先查会话是否存在：不存在的会话与无权的会话对外表现一致
func (s *ConversationService) RequireMember(conversationID, userID uint) error {
	ok, err := s.convRepo.IsMember(conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbiddenf("无权访问该会话")
	}
	return nil
}

// IsMember 供WebSocket房间加入校验使用
func (s *ConversationService) IsMember(conversationID, userID uint) (bool, error) {
	return s.convRepo.IsMember(conversationID, userID)
}

// GetOrCreateDirect 获取或创建与指定用户的私聊（幂等）
func (s *ConversationService) GetOrCreateDirect(userID, otherUserID uint) (*model.Conversation, error) {
	if userID == otherUserID {
		return nil, apperr.Conflictf("不能与自己创建私聊")
	}
	if _, err := s.userRepo.GetByID(otherUserID); err != nil {
		return nil, err
	}

	existing, err := s.convRepo.GetDirectByPair(userID, otherUserID)
	if err == nil {
		return existing, nil
	}

	conv, err := s.convRepo.CreateDirect(userID, otherUserID)
	if err != nil {
		return nil, err
	}

	_ = redis.IncrConversationCount()

	// 通知双方刷新会话列表
	payload := websocket.Event(websocket.EventChatsUpdated, map[string]interface{}{
		"conversation_id": conv.ID,
	})
	s.hub.SendToUser(userID, payload)
	s.hub.SendToUser(otherUserID, payload)

	return conv, nil
}

// GetOrCreateDirectByUsername 按用户名发起私聊
func (s *ConversationService) GetOrCreateDirectByUsername(userID uint, username string) (*model.Conversation, error) {
	other, err := s.userRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return s.GetOrCreateDirect(userID, other.ID)
}

// DirectListItem 私聊列表项（含对方展示信息与最新消息预览）
type DirectListItem struct {
	ConversationID uint   `json:"conversation_id"`
	PeerID         uint   `json:"peer_id"`
	PeerUsername   string `json:"peer_username"`
	PeerNickname   string `json:"peer_nickname"`
	PeerAvatar     string `json:"peer_avatar"`
	PeerStatus     string `json:"peer_status"`
	LastMessage    string `json:"last_message,omitempty"`
	LastMessageAt  string `json:"last_message_at,omitempty"`
	UnreadCount    int64  `json:"unread_count"`
}

// ListDirect 用户的私聊列表
func (s *ConversationService) ListDirect(userID uint) ([]DirectListItem, error) {
	convs, err := s.convRepo.ListForUser(userID, model.KindDirect)
	if err != nil {
		return nil, err
	}

	items := make([]DirectListItem, 0, len(convs))
	for _, conv := range convs {
		item := DirectListItem{ConversationID: conv.ID}

		members, err := s.convRepo.ListMembers(conv.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.UserID != userID {
				item.PeerID = m.UserID
				item.PeerUsername = m.Username
				item.PeerNickname = m.Nickname
				item.PeerAvatar = m.Avatar
			}
		}

		if last, err := s.msgRepo.LastMessage(conv.ID); err == nil && last != nil {
			item.LastMessage = previewText(last)
			item.LastMessageAt = last.CreatedAt.Format("2006-01-02 15:04:05")
		}
		if item.PeerID != 0 {
			if presence, err := redis.GetUserPresence(item.PeerID); err == nil {
				item.PeerStatus = presence.Status
			} else {
				item.PeerStatus = "offline"
			}
		}
		item.UnreadCount, _ = redis.GetUnreadCount(userID, conv.ID)

		items = append(items, item)
	}
	return items, nil
}

// previewText 会话列表的消息预览文案
func previewText(m *model.Message) string {
	switch m.MsgType {
	case model.MsgTypeFile:
		return "[附件] " + m.AttachmentName
	case model.MsgTypeSticker:
		return "[贴纸]"
	default:
		return m.Text
	}
}

// DeleteDirect 删除私聊（仅成员可删，双方的会话一并移除）
func (s *ConversationService) DeleteDirect(conversationID, userID uint) error {
	if err := s.RequireMember(conversationID, userID); err != nil {
		return err
	}
	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return err
	}
	if conv.Kind != model.KindDirect {
		return apperr.Forbiddenf("无权访问该会话")
	}

	members, err := s.convRepo.ListMembers(conversationID)
	if err != nil {
		return err
	}
	if err := s.convRepo.Delete(conversationID); err != nil {
		return err
	}
	// 会话已不存在，清空房间避免残留连接继续收到广播
	s.hub.CloseRoom(conversationID)

	payload := websocket.Event(websocket.EventChatsUpdated, map[string]interface{}{
		"conversation_id": conversationID,
		"deleted":         true,
	})
	for _, m := range members {
		s.hub.SendToUser(m.UserID, payload)
	}
	return nil
}

// CreateChannel 创建频道（nexus/nexphere）
// handle校验+小写规范化，重复handle返回Conflict
func (s *ConversationService) CreateChannel(kind, title, handle, description string, ownerID uint) (*model.Conversation, error) {
	if kind != model.KindNexus && kind != model.KindNexphere {
		return nil, apperr.Invalidf("未知的频道类型")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Invalidf("标题不能为空")
	}
	normalized, err := NormalizeHandle(handle)
	if err != nil {
		return nil, err
	}

	conv, err := s.convRepo.CreateChannel(kind, title, normalized, strings.TrimSpace(description), ownerID)
	if err != nil {
		return nil, err
	}

	_ = redis.IncrConversationCount()
	return conv, nil
}

// GetChannel 获取频道（按ID）
func (s *ConversationService) GetChannel(conversationID uint) (*model.Conversation, error) {
	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsChannel() {
		return nil, apperr.NotFoundf("频道不存在")
	}
	return conv, nil
}

// GetChannelByHandle 按handle获取频道
func (s *ConversationService) GetChannelByHandle(kind, handle string) (*model.Conversation, error) {
	return s.convRepo.GetByHandle(kind, strings.ToLower(strings.TrimSpace(handle)))
}

// ListChannels 公开频道列表
func (s *ConversationService) ListChannels(kind string, limit, offset int) ([]*model.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.convRepo.ListChannels(kind, limit, offset)
}

// ListJoined 用户加入的频道列表
func (s *ConversationService) ListJoined(userID uint, kind string) ([]*model.Conversation, error) {
	return s.convRepo.ListForUser(userID, kind)
}

// Join 加入频道
// nexus成员角色为subscriber，nexphere为member；重复加入幂等
func (s *ConversationService) Join(conversationID, userID uint) error {
	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return err
	}
	if !conv.IsChannel() {
		return apperr.Forbiddenf("无权访问该会话")
	}

	role := model.RoleMember
	if conv.Kind == model.KindNexus {
		role = model.RoleSubscriber
	}
	return s.convRepo.AddMember(conversationID, userID, role)
}

// Leave 退出频道
// owner是最后一名成员时拒绝退出
func (s *ConversationService) Leave(conversationID, userID uint) error {
	if err := s.RequireMember(conversationID, userID); err != nil {
		return err
	}
	if err := s.convRepo.RemoveMember(conversationID, userID); err != nil {
		return err
	}
	s.hub.LeaveRoom(userID, conversationID)
	return nil
}

// Members 成员列表（仅成员可见）
func (s *ConversationService) Members(conversationID, userID uint) ([]repository.MemberRow, error) {
	if err := s.RequireMember(conversationID, userID); err != nil {
		return nil, err
	}
	return s.convRepo.ListMembers(conversationID)
}

// MemberCount 成员数（频道详情展示用，公开可见）
func (s *ConversationService) MemberCount(conversationID uint) (int64, error) {
	return s.convRepo.MemberCount(conversationID)
}

// RemoveMember 移除成员（owner/admin可操作；owner不可被移除）
func (s *ConversationService) RemoveMember(conversationID, operatorID, targetID uint) error {
	operator, err := s.membershipOrForbidden(conversationID, operatorID)
	if err != nil {
		return err
	}
	if operator.Role != model.RoleOwner && operator.Role != model.RoleAdmin {
		return apperr.Forbiddenf("无权移除成员")
	}

	target, err := s.convRepo.GetMembership(conversationID, targetID)
	if err != nil {
		return err
	}
	if target.Role == model.RoleOwner {
		return apperr.Forbiddenf("owner不能被移除")
	}

	if err := s.convRepo.RemoveMember(conversationID, targetID); err != nil {
		return err
	}
	s.hub.LeaveRoom(targetID, conversationID)
	return nil
}

// UpdateChannel 更新频道元数据（owner/admin可操作）
func (s *ConversationService) UpdateChannel(conversationID, operatorID uint, title, description *string) (*model.Conversation, error) {
	operator, err := s.membershipOrForbidden(conversationID, operatorID)
	if err != nil {
		return nil, err
	}
	if operator.Role != model.RoleOwner && operator.Role != model.RoleAdmin {
		return nil, apperr.Forbiddenf("无权修改频道")
	}

	fields := map[string]interface{}{}
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return nil, apperr.Invalidf("标题不能为空")
		}
		fields["title"] = t
	}
	if description != nil {
		fields["description"] = strings.TrimSpace(*description)
	}
	if len(fields) == 0 {
		return nil, apperr.Invalidf("没有需要更新的字段")
	}

	if err := s.convRepo.UpdateChannel(conversationID, fields); err != nil {
		return nil, err
	}
	return s.convRepo.GetByID(conversationID)
}

// DeleteChannel 删除频道（仅owner）
func (s *ConversationService) DeleteChannel(conversationID, operatorID uint) error {
	operator, err := s.membershipOrForbidden(conversationID, operatorID)
	if err != nil {
		return err
	}
	if operator.Role != model.RoleOwner {
		return apperr.Forbiddenf("仅owner可删除频道")
	}

	if err := s.convRepo.Delete(conversationID); err != nil {
		return err
	}
	s.hub.CloseRoom(conversationID)
	s.hub.BroadcastGlobal(websocket.Event(websocket.EventChatsUpdated, map[string]interface{}{
		"conversation_id": conversationID,
		"deleted":         true,
	}))
	return nil
}

// membershipOrForbidden 获取成员记录，非成员统一返回Forbidden
func (s *ConversationService) membershipOrForbidden(conversationID, userID uint) (*model.Membership, error) {
	m, err := s.convRepo.GetMembership(conversationID, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Forbiddenf("无权访问该会话")
		}
		return nil, err
	}
	return m, nil
}
