package handler

import (
	"nexchat/internal/service"
	"nexchat/pkg/jwt"
	"nexchat/pkg/response"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息接口
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler 创建MessageHandler实例
func NewMessageHandler(s *service.MessageService) *MessageHandler {
	return &MessageHandler{service: s}
}

// List 获取会话消息历史
func (h *MessageHandler) List(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的会话ID")
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)

	rows, err := h.service.List(conversationID, jwt.GetUserID(c), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, rows)
}

// Send 发送消息
func (h *MessageHandler) Send(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的会话ID")
		return
	}

	type req struct {
		Text      string `json:"text"`
		Sticker   string `json:"sticker"`
		ReplyToID *uint  `json:"reply_to_id"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	message, err := h.service.Send(conversationID, jwt.GetUserID(c), service.SendInput{
		Text:      r.Text,
		Sticker:   r.Sticker,
		ReplyToID: r.ReplyToID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "消息已发送", response.FilterMessageInfo(message))
}

// Edit 编辑消息
func (h *MessageHandler) Edit(c *gin.Context) {
	messageID := paramUint(c, "message_id")
	if messageID == 0 {
		response.BadRequest(c, "无效的消息ID")
		return
	}

	type req struct {
		Text string `json:"text" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	message, err := h.service.Edit(messageID, jwt.GetUserID(c), r.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "消息已编辑", response.FilterMessageInfo(message))
}

// Delete 删除消息
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID := paramUint(c, "message_id")
	if messageID == 0 {
		response.BadRequest(c, "无效的消息ID")
		return
	}

	if err := h.service.Delete(messageID, jwt.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "消息已删除", nil)
}

// TogglePin 置顶toggle
func (h *MessageHandler) TogglePin(c *gin.Context) {
	messageID := paramUint(c, "message_id")
	if messageID == 0 {
		response.BadRequest(c, "无效的消息ID")
		return
	}

	pinned, err := h.service.TogglePin(messageID, jwt.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"pinned": pinned})
}

// ListPinned 置顶消息列表
func (h *MessageHandler) ListPinned(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的会话ID")
		return
	}

	rows, err := h.service.ListPinned(conversationID, jwt.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, rows)
}

// ToggleReaction 表情回应toggle
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID := paramUint(c, "message_id")
	if messageID == 0 {
		response.BadRequest(c, "无效的消息ID")
		return
	}

	type req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	added, err := h.service.ToggleReaction(messageID, jwt.GetUserID(c), r.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"added": added})
}
