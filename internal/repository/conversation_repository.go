package repository

import (
	"errors"
	"fmt"
	"time"

	"nexchat/internal/model"
	"nexchat/pkg/apperr"

	"gorm.io/gorm"
)

// ConversationRepository 会话与成员关系仓储（授权依据）
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建ConversationRepository实例
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// pairKey 私聊用户对键："小ID:大ID"，与用户顺序无关
func pairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// IsMember 判断用户是否为会话成员
// 没有成员记录的孤儿会话对所有用户返回false
func (r *ConversationRepository) IsMember(conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Membership{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// GetByID 根据ID获取会话
func (r *ConversationRepository) GetByID(id uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("会话不存在")
		}
		return nil, err
	}
	return &conv, nil
}

// GetByHandle 根据类型与handle获取频道
func (r *ConversationRepository) GetByHandle(kind, handle string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.Where("kind = ? AND handle = ?", kind, handle).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("频道不存在")
		}
		return nil, err
	}
	return &conv, nil
}

// GetDirectByPair 查找两个用户之间已存在的私聊
func (r *ConversationRepository) GetDirectByPair(userA, userB uint) (*model.Conversation, error) {
	var conv model.Conversation
	key := pairKey(userA, userB)
	if err := r.db.Where("kind = ? AND pair_key = ?", model.KindDirect, key).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("会话不存在")
		}
		return nil, err
	}
	return &conv, nil
}

// CreateDirect 创建两人私聊（幂等）
// 已存在时返回现有会话；创建在事务内完成（会话+两条成员记录），
// 并发重复创建由 pair_key 唯一索引兜底
func (r *ConversationRepository) CreateDirect(userA, userB uint) (*model.Conversation, error) {
	if existing, err := r.GetDirectByPair(userA, userB); err == nil {
		return existing, nil
	}

	key := pairKey(userA, userB)
	conv := &model.Conversation{
		Kind:    model.KindDirect,
		PairKey: &key,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		members := []model.Membership{
			{ConversationID: conv.ID, UserID: userA, Role: model.RoleMember},
			{ConversationID: conv.ID, UserID: userB, Role: model.RoleMember},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		if isDuplicateErr(err) {
			// 并发下另一请求先创建成功，读回现有会话
			return r.GetDirectByPair(userA, userB)
		}
		return nil, err
	}
	return conv, nil
}

// CreateChannel 创建频道（nexus/nexphere）
// 事务内创建会话与owner成员记录；handle重复返回Conflict
func (r *ConversationRepository) CreateChannel(kind, title, handle, description string, ownerID uint) (*model.Conversation, error) {
	conv := &model.Conversation{
		Kind:        kind,
		Title:       title,
		Handle:      &handle,
		Description: description,
		OwnerID:     ownerID,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		owner := &model.Membership{
			ConversationID: conv.ID,
			UserID:         ownerID,
			Role:           model.RoleOwner,
		}
		return tx.Create(owner).Error
	})
	if err != nil {
		if isDuplicateErr(err) {
			return nil, apperr.Conflictf("handle已被占用")
		}
		return nil, err
	}
	return conv, nil
}

// AddMember 添加成员（重复加入保持幂等）
func (r *ConversationRepository) AddMember(conversationID, userID uint, role string) error {
	m := &model.Membership{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		CreatedAt:      time.Now(),
	}
	if err := r.db.Create(m).Error; err != nil {
		if isDuplicateErr(err) {
			return nil
		}
		return err
	}
	return nil
}

// GetMembership 获取成员记录
func (r *ConversationRepository) GetMembership(conversationID, userID uint) (*model.Membership, error) {
	var m model.Membership
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("成员不存在")
		}
		return nil, err
	}
	return &m, nil
}

// RemoveMember 移除成员
// owner 是最后一名成员时拒绝移除（避免频道失主悬空）
func (r *ConversationRepository) RemoveMember(conversationID, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var m model.Membership
		if err := tx.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("成员不存在")
			}
			return err
		}

		if m.Role == model.RoleOwner {
			var count int64
			if err := tx.Model(&model.Membership{}).
				Where("conversation_id = ?", conversationID).
				Count(&count).Error; err != nil {
				return err
			}
			if count <= 1 {
				return apperr.Conflictf("owner不能退出仅剩自己的频道")
			}
		}

		return tx.Delete(&m).Error
	})
}

// MemberCount 会话成员数
func (r *ConversationRepository) MemberCount(conversationID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Membership{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	return count, err
}

// MemberRow 成员列表行（连接用户展示字段）
type MemberRow struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	Nickname string    `json:"nickname"`
	Avatar   string    `json:"avatar"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ListMembers 成员列表（单条查询连接用户表，避免N+1）
func (r *ConversationRepository) ListMembers(conversationID uint) ([]MemberRow, error) {
	var rows []MemberRow
	err := r.db.Table("membership").
		Select("membership.user_id, user.username, user.nickname, user.avatar, membership.role, membership.created_at AS joined_at").
		Joins("JOIN user ON user.id = membership.user_id AND user.deleted_at IS NULL").
		Where("membership.conversation_id = ?", conversationID).
		Order("membership.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

// ListForUser 用户参与的某类会话列表
func (r *ConversationRepository) ListForUser(userID uint, kind string) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	err := r.db.
		Joins("JOIN membership ON membership.conversation_id = conversation.id").
		Where("membership.user_id = ? AND conversation.kind = ?", userID, kind).
		Order("conversation.updated_at DESC").
		Find(&convs).Error
	return convs, err
}

// ListChannels 公开频道列表（按类型）
func (r *ConversationRepository) ListChannels(kind string, limit, offset int) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	err := r.db.Where("kind = ?", kind).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error
	return convs, err
}

// UpdateChannel 更新频道元数据
func (r *ConversationRepository) UpdateChannel(conversationID uint, fields map[string]interface{}) error {
	return r.db.Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		Updates(fields).Error
}

// Delete 删除会话
// 事务内级联清理成员、消息、置顶记录
func (r *ConversationRepository) Delete(conversationID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&model.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&model.PinnedMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Conversation{}, conversationID).Error
	})
}

// Count 会话总数（管理后台统计）
func (r *ConversationRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Conversation{}).Count(&count).Error
	return count, err
}
