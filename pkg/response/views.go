package response

import (
	"nexchat/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// UserInfo 用户信息（隐藏敏感字段）
type UserInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar"`
	Bio       string `json:"bio"`
	Status    string `json:"status"`
	LastSeen  string `json:"last_seen"`
	CreatedAt string `json:"created_at"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}

	return &UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		Avatar:    user.Avatar,
		Bio:       user.Bio,
		Status:    user.Status,
		LastSeen:  user.LastSeen.Format(timeLayout),
		CreatedAt: user.CreatedAt.Format(timeLayout),
	}
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	User        *UserInfo `json:"user"`
	AccessToken string    `json:"access_token"`
}

// ConversationInfo 会话信息
type ConversationInfo struct {
	ID          uint   `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Description string `json:"description,omitempty"`
	OwnerID     uint   `json:"owner_id,omitempty"`
	MemberCount int64  `json:"member_count,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// FilterConversationInfo 过滤会话信息
func FilterConversationInfo(conv *model.Conversation) *ConversationInfo {
	if conv == nil {
		return nil
	}
	info := &ConversationInfo{
		ID:          conv.ID,
		Kind:        conv.Kind,
		Title:       conv.Title,
		Description: conv.Description,
		OwnerID:     conv.OwnerID,
		CreatedAt:   conv.CreatedAt.Format(timeLayout),
	}
	if conv.Handle != nil {
		info.Handle = *conv.Handle
	}
	return info
}

// MessageInfo 消息信息（含作者展示字段，避免前端N+1查询）
type MessageInfo struct {
	ID             uint   `json:"id"`
	ConversationID uint   `json:"conversation_id"`
	AuthorID       *uint  `json:"author_id"`
	AuthorName     string `json:"author_name,omitempty"`
	AuthorAvatar   string `json:"author_avatar,omitempty"`
	Text           string `json:"text,omitempty"`
	MsgType        string `json:"msg_type"`
	Sticker        string `json:"sticker,omitempty"`
	AttachmentPath string `json:"attachment_path,omitempty"`
	AttachmentName string `json:"attachment_name,omitempty"`
	ReplyToID      *uint  `json:"reply_to_id,omitempty"`
	EditedAt       string `json:"edited_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// FilterMessageInfo 过滤消息信息
func FilterMessageInfo(message *model.Message) *MessageInfo {
	if message == nil {
		return nil
	}

	info := &MessageInfo{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		AuthorID:       message.AuthorID,
		Text:           message.Text,
		MsgType:        message.MsgType,
		Sticker:        message.Sticker,
		AttachmentPath: message.AttachmentPath,
		AttachmentName: message.AttachmentName,
		ReplyToID:      message.ReplyToID,
		CreatedAt:      message.CreatedAt.Format(timeLayout),
	}
	if message.EditedAt != nil {
		info.EditedAt = message.EditedAt.Format(timeLayout)
	}
	return info
}

// MemberInfo 成员信息
type MemberInfo struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}
