package service

import (
	"nexchat/internal/model"
	"nexchat/internal/repository"
	"nexchat/pkg/apperr"
	"nexchat/pkg/websocket"
)

// BlockService 拉黑服务
// 拉黑/解除拉黑时向已存在的私聊写入一条system消息并广播，
// 让双方界面同步展示状态变更
type BlockService struct {
	blockRepo *repository.BlockRepository
	convRepo  *repository.ConversationRepository
	userRepo  *repository.UserRepository
	msgRepo   *repository.MessageRepository
	hub       *websocket.Hub
}

// NewBlockService 创建BlockService实例
func NewBlockService(blockRepo *repository.BlockRepository, convRepo *repository.ConversationRepository, userRepo *repository.UserRepository, msgRepo *repository.MessageRepository, hub *websocket.Hub) *BlockService {
	return &BlockService{
		blockRepo: blockRepo,
		convRepo:  convRepo,
		userRepo:  userRepo,
		msgRepo:   msgRepo,
		hub:       hub,
	}
}

// Block 拉黑用户
func (s *BlockService) Block(blockerID, blockedID uint) error {
	if blockerID == blockedID {
		return apperr.Conflictf("不能拉黑自己")
	}
	if _, err := s.userRepo.GetByID(blockedID); err != nil {
		return err
	}
	if err := s.blockRepo.Create(blockerID, blockedID); err != nil {
		return err
	}

	s.insertSystemMessage(blockerID, blockedID, "用户已被拉黑")
	return nil
}

// Unblock 解除拉黑
func (s *BlockService) Unblock(blockerID, blockedID uint) error {
	if err := s.blockRepo.Delete(blockerID, blockedID); err != nil {
		return err
	}

	s.insertSystemMessage(blockerID, blockedID, "已解除拉黑")
	return nil
}

// Status 查询拉黑状态（双向）
func (s *BlockService) Status(userID, otherID uint) (blockedByMe, blockedMe bool, err error) {
	blockedByMe, err = s.blockRepo.Exists(userID, otherID)
	if err != nil {
		return false, false, err
	}
	blockedMe, err = s.blockRepo.Exists(otherID, userID)
	if err != nil {
		return false, false, err
	}
	return blockedByMe, blockedMe, nil
}

// List 当前用户的拉黑列表
func (s *BlockService) List(userID uint) ([]*model.Block, error) {
	return s.blockRepo.ListForUser(userID)
}

// insertSystemMessage 向已存在的私聊写入system消息并广播
// 没有私聊则不写（拉黑不会创建会话）
func (s *BlockService) insertSystemMessage(blockerID, blockedID uint, text string) {
	conv, err := s.convRepo.GetDirectByPair(blockerID, blockedID)
	if err != nil {
		return
	}

	message := &model.Message{
		ConversationID: conv.ID,
		Text:           text,
		MsgType:        model.MsgTypeSystem,
	}
	if err := s.msgRepo.Create(message); err != nil {
		return
	}

	s.hub.Broadcast(conv.ID, websocket.Event(websocket.NewMessageEvent(conv.Kind), map[string]interface{}{
		"conversation_id": conv.ID,
		"message_id":      message.ID,
		"text":            text,
		"msg_type":        model.MsgTypeSystem,
		"created_at":      message.CreatedAt.Format("2006-01-02 15:04:05"),
	}))
}
