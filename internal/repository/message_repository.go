package repository

import (
	"errors"
	"time"

	"nexchat/internal/model"
	"nexchat/pkg/apperr"

	"gorm.io/gorm"
)

// MessageRepository 消息数据仓储
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建消息
func (r *MessageRepository) Create(message *model.Message) error {
	return r.db.Create(message).Error
}

// GetByID 根据ID获取消息
func (r *MessageRepository) GetByID(id uint) (*model.Message, error) {
	var message model.Message
	err := r.db.First(&message, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("消息不存在")
		}
		return nil, err
	}
	return &message, nil
}

// MessageRow 消息列表行（连接作者展示字段，避免N+1）
type MessageRow struct {
	ID             uint       `json:"id"`
	ConversationID uint       `json:"conversation_id"`
	AuthorID       *uint      `json:"author_id"`
	AuthorName     string     `json:"author_name"`
	AuthorAvatar   string     `json:"author_avatar"`
	Text           string     `json:"text"`
	MsgType        string     `json:"msg_type"`
	Sticker        string     `json:"sticker"`
	AttachmentPath string     `json:"attachment_path"`
	AttachmentName string     `json:"attachment_name"`
	ReplyToID      *uint      `json:"reply_to_id"`
	EditedAt       *time.Time `json:"edited_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// List 获取会话消息
// 分页按最新在前取offset/limit，页内按时间正序返回
// 作者已注销的消息 author_name 为空串
func (r *MessageRepository) List(conversationID uint, limit, offset int) ([]MessageRow, error) {
	var rows []MessageRow
	err := r.db.Table("message").
		Select("message.id, message.conversation_id, message.author_id, "+
			"COALESCE(user.username, '') AS author_name, COALESCE(user.avatar, '') AS author_avatar, "+
			"message.text, message.msg_type, message.sticker, message.attachment_path, "+
			"message.attachment_name, message.reply_to_id, message.edited_at, message.created_at").
		Joins("LEFT JOIN user ON user.id = message.author_id AND user.deleted_at IS NULL").
		Where("message.conversation_id = ?", conversationID).
		Order("message.created_at DESC, message.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	// 页内反转为时间正序
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// UpdateText 编辑消息文本并记录编辑时间
func (r *MessageRepository) UpdateText(messageID uint, text string, editedAt time.Time) error {
	return r.db.Model(&model.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{"text": text, "edited_at": editedAt}).Error
}

// Delete 硬删除消息（同时清理置顶与表情回应记录）
func (r *MessageRepository) Delete(messageID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", messageID).Delete(&model.PinnedMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", messageID).Delete(&model.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Message{}, messageID).Error
	})
}

// TogglePin 置顶toggle：已置顶则取消，未置顶则置顶
// 返回toggle后是否处于置顶状态
func (r *MessageRepository) TogglePin(conversationID, messageID, operatorID uint) (bool, error) {
	var pinned bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.PinnedMessage
		err := tx.Where("conversation_id = ? AND message_id = ?", conversationID, messageID).
			First(&existing).Error
		if err == nil {
			pinned = false
			return tx.Delete(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		pinned = true
		return tx.Create(&model.PinnedMessage{
			ConversationID: conversationID,
			MessageID:      messageID,
			PinnedBy:       operatorID,
		}).Error
	})
	return pinned, err
}

// ListPinned 频道置顶消息列表
func (r *MessageRepository) ListPinned(conversationID uint) ([]MessageRow, error) {
	var rows []MessageRow
	err := r.db.Table("message").
		Select("message.id, message.conversation_id, message.author_id, "+
			"COALESCE(user.username, '') AS author_name, COALESCE(user.avatar, '') AS author_avatar, "+
			"message.text, message.msg_type, message.sticker, message.attachment_path, "+
			"message.attachment_name, message.reply_to_id, message.edited_at, message.created_at").
		Joins("JOIN pinned_message ON pinned_message.message_id = message.id").
		Joins("LEFT JOIN user ON user.id = message.author_id AND user.deleted_at IS NULL").
		Where("pinned_message.conversation_id = ?", conversationID).
		Order("pinned_message.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

// ToggleReaction 表情回应toggle：已存在则移除，不存在则添加
// 返回toggle后是否存在该回应
func (r *MessageRepository) ToggleReaction(messageID, userID uint, emoji string) (bool, error) {
	var added bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Reaction
		err := tx.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
			First(&existing).Error
		if err == nil {
			added = false
			return tx.Delete(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		added = true
		return tx.Create(&model.Reaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		}).Error
	})
	return added, err
}

// LastMessage 获取会话最新一条消息（会话列表预览用）
func (r *MessageRepository) LastMessage(conversationID uint) (*model.Message, error) {
	var message model.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// Count 消息总数（管理后台统计）
func (r *MessageRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).Count(&count).Error
	return count, err
}
