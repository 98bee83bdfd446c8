package service

import (
	"strings"
	"time"

	"nexchat/internal/model"
	"nexchat/internal/repository"
	"nexchat/pkg/apperr"
	"nexchat/pkg/redis"
	"nexchat/pkg/websocket"
)

// 分页限制
const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageService 消息服务
// 所有操作先过会话网关的成员校验；广播严格在写入提交成功之后
type MessageService struct {
	msgRepo   *repository.MessageRepository
	convRepo  *repository.ConversationRepository
	userRepo  *repository.UserRepository
	blockRepo *repository.BlockRepository
	gateway   *ConversationService
	hub       *websocket.Hub
}

// NewMessageService 创建MessageService实例
func NewMessageService(msgRepo *repository.MessageRepository, convRepo *repository.ConversationRepository, userRepo *repository.UserRepository, blockRepo *repository.BlockRepository, gateway *ConversationService, hub *websocket.Hub) *MessageService {
	return &MessageService{
		msgRepo:   msgRepo,
		convRepo:  convRepo,
		userRepo:  userRepo,
		blockRepo: blockRepo,
		gateway:   gateway,
		hub:       hub,
	}
}

// SendInput 发送消息入参
type SendInput struct {
	Text      string
	Sticker   string
	ReplyToID *uint
}

// Send 发送消息
// 文本与贴纸至少其一非空；回复引用须指向同一会话内的消息
// 私聊在发送前做双向拉黑校验（频道不做拉黑校验）
func (s *MessageService) Send(conversationID, authorID uint, in SendInput) (*model.Message, error) {
	if err := s.gateway.RequireMember(conversationID, authorID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	sticker := strings.TrimSpace(in.Sticker)
	if text == "" && sticker == "" {
		return nil, apperr.Invalidf("消息内容不能为空")
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, err
	}

	// 私聊拉黑校验（任一方向存在拉黑即拒绝）
	if conv.Kind == model.KindDirect {
		peerID, err := s.directPeer(conversationID, authorID)
		if err != nil {
			return nil, err
		}
		blocked, err := s.blockRepo.ExistsEither(authorID, peerID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperr.Forbiddenf("无法发送消息")
		}
	}

	if in.ReplyToID != nil {
		target, err := s.msgRepo.GetByID(*in.ReplyToID)
		if err != nil {
			return nil, apperr.Invalidf("被回复的消息不存在")
		}
		if target.ConversationID != conversationID {
			return nil, apperr.Invalidf("不能回复其他会话的消息")
		}
	}

	msgType := model.MsgTypeText
	if sticker != "" {
		msgType = model.MsgTypeSticker
	}
	author := authorID
	message := &model.Message{
		ConversationID: conversationID,
		AuthorID:       &author,
		Text:           text,
		Sticker:        sticker,
		MsgType:        msgType,
		ReplyToID:      in.ReplyToID,
	}
	if err := s.msgRepo.Create(message); err != nil {
		return nil, err
	}

	s.afterWrite(conv, authorID, message)
	return message, nil
}

// SendAttachment 发送附件消息（上传handler完成文件落盘后调用）
func (s *MessageService) SendAttachment(conversationID, authorID uint, storedPath, originalName, caption string) (*model.Message, error) {
	if err := s.gateway.RequireMember(conversationID, authorID); err != nil {
		return nil, err
	}
	if storedPath == "" {
		return nil, apperr.Invalidf("附件不能为空")
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, err
	}

	author := authorID
	message := &model.Message{
		ConversationID: conversationID,
		AuthorID:       &author,
		Text:           strings.TrimSpace(caption),
		MsgType:        model.MsgTypeFile,
		AttachmentPath: storedPath,
		AttachmentName: originalName,
	}
	if err := s.msgRepo.Create(message); err != nil {
		return nil, err
	}

	s.afterWrite(conv, authorID, message)
	return message, nil
}

// afterWrite 写入提交成功后的广播与计数
func (s *MessageService) afterWrite(conv *model.Conversation, authorID uint, message *model.Message) {
	_ = redis.IncrMessageCount()

	authorName := ""
	if u, err := s.userRepo.GetByID(authorID); err == nil {
		authorName = u.Username
	}

	s.hub.Broadcast(conv.ID, websocket.Event(websocket.NewMessageEvent(conv.Kind), map[string]interface{}{
		"conversation_id": conv.ID,
		"message_id":      message.ID,
		"author_id":       authorID,
		"author_name":     authorName,
		"text":            message.Text,
		"msg_type":        message.MsgType,
		"sticker":         message.Sticker,
		"attachment_name": message.AttachmentName,
		"reply_to_id":     message.ReplyToID,
		"created_at":      message.CreatedAt.Format("2006-01-02 15:04:05"),
	}))

	// 私聊：对方未读计数加一并通知刷新会话列表
	if conv.Kind == model.KindDirect {
		if peerID, err := s.directPeer(conv.ID, authorID); err == nil {
			_ = redis.IncrementUnreadCount(peerID, conv.ID)
			s.hub.SendToUser(peerID, websocket.Event(websocket.EventChatsUpdated, map[string]interface{}{
				"conversation_id": conv.ID,
			}))
		}
	}
}

// directPeer 私聊中的对方用户ID
func (s *MessageService) directPeer(conversationID, userID uint) (uint, error) {
	members, err := s.convRepo.ListMembers(conversationID)
	if err != nil {
		return 0, err
	}
	for _, m := range members {
		if m.UserID != userID {
			return m.UserID, nil
		}
	}
	return 0, apperr.NotFoundf("会话成员不完整")
}

// List 获取会话消息历史
// 分页新消息在前，页内按时间正序；读取后清零未读计数
func (s *MessageService) List(conversationID, userID uint, page, pageSize int) ([]repository.MessageRow, error) {
	if err := s.gateway.RequireMember(conversationID, userID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	offset := (page - 1) * pageSize

	rows, err := s.msgRepo.List(conversationID, pageSize, offset)
	if err != nil {
		return nil, err
	}

	_ = redis.ResetUnreadCount(userID, conversationID)
	return rows, nil
}

// Edit 编辑消息（仅作者本人）
// 统一记录编辑时间，所有会话类型行为一致
func (s *MessageService) Edit(messageID, userID uint, newText string) (*model.Message, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return nil, apperr.Invalidf("消息内容不能为空")
	}

	message, err := s.msgRepo.GetByID(messageID)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.RequireMember(message.ConversationID, userID); err != nil {
		return nil, err
	}
	if message.AuthorID == nil || *message.AuthorID != userID {
		return nil, apperr.Forbiddenf("仅作者可编辑消息")
	}

	now := time.Now()
	if err := s.msgRepo.UpdateText(messageID, newText, now); err != nil {
		return nil, err
	}

	conv, err := s.convRepo.GetByID(message.ConversationID)
	if err == nil {
		s.hub.Broadcast(conv.ID, websocket.Event(websocket.EditMessageEvent(conv.Kind), map[string]interface{}{
			"conversation_id": conv.ID,
			"message_id":      messageID,
			"text":            newText,
			"edited_at":       now.Format("2006-01-02 15:04:05"),
		}))
	}

	message.Text = newText
	message.EditedAt = &now
	return message, nil
}

// Delete 删除消息（硬删除）
// 作者本人可删；频道中owner也可删；私聊仅限作者
func (s *MessageService) Delete(messageID, userID uint) error {
	message, err := s.msgRepo.GetByID(messageID)
	if err != nil {
		return err
	}
	if err := s.gateway.RequireMember(message.ConversationID, userID); err != nil {
		return err
	}

	conv, err := s.convRepo.GetByID(message.ConversationID)
	if err != nil {
		return err
	}

	isAuthor := message.AuthorID != nil && *message.AuthorID == userID
	if !isAuthor {
		if !conv.IsChannel() {
			return apperr.Forbiddenf("仅作者可删除消息")
		}
		m, err := s.convRepo.GetMembership(conv.ID, userID)
		if err != nil || m.Role != model.RoleOwner {
			return apperr.Forbiddenf("仅作者或频道owner可删除消息")
		}
	}

	if err := s.msgRepo.Delete(messageID); err != nil {
		return err
	}

	s.hub.Broadcast(conv.ID, websocket.Event(websocket.DeleteMessageEvent(conv.Kind), map[string]interface{}{
		"conversation_id": conv.ID,
		"message_id":      messageID,
	}))
	return nil
}

// TogglePin 置顶toggle（仅频道；作者或owner可操作）
func (s *MessageService) TogglePin(messageID, userID uint) (bool, error) {
	message, err := s.msgRepo.GetByID(messageID)
	if err != nil {
		return false, err
	}
	if err := s.gateway.RequireMember(message.ConversationID, userID); err != nil {
		return false, err
	}

	conv, err := s.convRepo.GetByID(message.ConversationID)
	if err != nil {
		return false, err
	}
	if !conv.IsChannel() {
		return false, apperr.Invalidf("仅频道支持置顶")
	}

	isAuthor := message.AuthorID != nil && *message.AuthorID == userID
	if !isAuthor {
		m, err := s.convRepo.GetMembership(conv.ID, userID)
		if err != nil || m.Role != model.RoleOwner {
			return false, apperr.Forbiddenf("仅作者或频道owner可置顶消息")
		}
	}

	pinned, err := s.msgRepo.TogglePin(conv.ID, messageID, userID)
	if err != nil {
		return false, err
	}

	s.hub.Broadcast(conv.ID, websocket.Event(websocket.PinMessageEvent(conv.Kind), map[string]interface{}{
		"conversation_id": conv.ID,
		"message_id":      messageID,
		"pinned":          pinned,
	}))
	return pinned, nil
}

// ListPinned 置顶消息列表（仅成员可见）
func (s *MessageService) ListPinned(conversationID, userID uint) ([]repository.MessageRow, error) {
	if err := s.gateway.RequireMember(conversationID, userID); err != nil {
		return nil, err
	}
	return s.msgRepo.ListPinned(conversationID)
}

// ToggleReaction 表情回应toggle（仅成员）
func (s *MessageService) ToggleReaction(messageID, userID uint, emoji string) (bool, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return false, apperr.Invalidf("表情不能为空")
	}

	message, err := s.msgRepo.GetByID(messageID)
	if err != nil {
		return false, err
	}
	if err := s.gateway.RequireMember(message.ConversationID, userID); err != nil {
		return false, err
	}

	added, err := s.msgRepo.ToggleReaction(messageID, userID, emoji)
	if err != nil {
		return false, err
	}

	if conv, err := s.convRepo.GetByID(message.ConversationID); err == nil {
		s.hub.Broadcast(conv.ID, websocket.Event(websocket.ReactionEvent(conv.Kind), map[string]interface{}{
			"conversation_id": conv.ID,
			"message_id":      messageID,
			"user_id":         userID,
			"emoji":           emoji,
			"added":           added,
		}))
	}
	return added, nil
}
