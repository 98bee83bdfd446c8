package handler

import (
	"nexchat/internal/model"
	"nexchat/internal/service"
	"nexchat/pkg/jwt"
	"nexchat/pkg/response"

	"github.com/gin-gonic/gin"
)

// 频道类型注入到Context的键名
// nexus与nexphere路由组共用一套handler，类型由路由组中间件注入
const contextChannelKindKey = "channel_kind"

// ChannelKindMiddleware 注入频道类型
func ChannelKindMiddleware(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextChannelKindKey, kind)
		c.Next()
	}
}

func channelKind(c *gin.Context) string {
	if kind, ok := c.Get(contextChannelKindKey); ok {
		if k, ok := kind.(string); ok {
			return k
		}
	}
	return model.KindNexphere
}

// ConversationHandler 会话接口（私聊与频道共用）
type ConversationHandler struct {
	service *service.ConversationService
}

// NewConversationHandler 创建ConversationHandler实例
func NewConversationHandler(s *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: s}
}

// ListDirect 私聊列表
func (h *ConversationHandler) ListDirect(c *gin.Context) {
	items, err := h.service.ListDirect(jwt.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, items)
}

// NewDirect 按用户名发起私聊（幂等）
func (h *ConversationHandler) NewDirect(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	conv, err := h.service.GetOrCreateDirectByUsername(jwt.GetUserID(c), r.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterConversationInfo(conv))
}

// GetOrCreateDirect 按用户ID获取或创建私聊（幂等）
func (h *ConversationHandler) GetOrCreateDirect(c *gin.Context) {
	otherID := paramUint(c, "user_id")
	if otherID == 0 {
		response.BadRequest(c, "无效的用户ID")
		return
	}
	conv, err := h.service.GetOrCreateDirect(jwt.GetUserID(c), otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterConversationInfo(conv))
}

// DeleteDirect 删除私聊
func (h *ConversationHandler) DeleteDirect(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的会话ID")
		return
	}
	if err := h.service.DeleteDirect(conversationID, jwt.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "会话已删除", nil)
}

// CreateChannel 创建频道
func (h *ConversationHandler) CreateChannel(c *gin.Context) {
	type req struct {
		Title       string `json:"title" binding:"required"`
		Handle      string `json:"handle" binding:"required"`
		Description string `json:"description"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	conv, err := h.service.CreateChannel(channelKind(c), r.Title, r.Handle, r.Description, jwt.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "频道已创建", response.FilterConversationInfo(conv))
}

// ListChannels 公开频道列表
func (h *ConversationHandler) ListChannels(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	convs, err := h.service.ListChannels(channelKind(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	infos := make([]*response.ConversationInfo, 0, len(convs))
	for _, conv := range convs {
		infos = append(infos, response.FilterConversationInfo(conv))
	}
	response.Success(c, infos)
}

// ListJoined 用户加入的频道列表
func (h *ConversationHandler) ListJoined(c *gin.Context) {
	convs, err := h.service.ListJoined(jwt.GetUserID(c), channelKind(c))
	if err != nil {
		respondError(c, err)
		return
	}
	infos := make([]*response.ConversationInfo, 0, len(convs))
	for _, conv := range convs {
		infos = append(infos, response.FilterConversationInfo(conv))
	}
	response.Success(c, infos)
}

// GetChannel 获取频道详情（按ID）
func (h *ConversationHandler) GetChannel(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的频道ID")
		return
	}
	conv, err := h.service.GetChannel(conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, h.channelDetail(conv))
}

// GetChannelByHandle 按handle获取频道详情
func (h *ConversationHandler) GetChannelByHandle(c *gin.Context) {
	conv, err := h.service.GetChannelByHandle(channelKind(c), c.Param("handle"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, h.channelDetail(conv))
}

// channelDetail 频道详情视图，附带成员数
func (h *ConversationHandler) channelDetail(conv *model.Conversation) *response.ConversationInfo {
	info := response.FilterConversationInfo(conv)
	if count, err := h.service.MemberCount(conv.ID); err == nil {
		info.MemberCount = count
	}
	return info
}

// Join 加入频道
func (h *ConversationHandler) Join(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的频道ID")
		return
	}
	if err := h.service.Join(conversationID, jwt.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已加入频道", nil)
}

// Leave 退出频道
func (h *ConversationHandler) Leave(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的频道ID")
		return
	}
	if err := h.service.Leave(conversationID, jwt.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已退出频道", nil)
}

// Members 成员列表
func (h *ConversationHandler) Members(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的频道ID")
		return
	}
	members, err := h.service.Members(conversationID, jwt.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	list := make([]response.MemberInfo, 0, len(members))
	for _, m := range members {
		list = append(list, response.MemberInfo{
			UserID:   m.UserID,
			Username: m.Username,
			Nickname: m.Nickname,
			Avatar:   m.Avatar,
			Role:     m.Role,
			JoinedAt: m.JoinedAt.Format("2006-01-02 15:04:05"),
		})
	}
	response.Success(c, list)
}

// RemoveMember 移除成员
func (h *ConversationHandler) RemoveMember(c *gin.Context) {
	conversationID := paramUint(c, "id")
	targetID := paramUint(c, "user_id")
	if conversationID == 0 || targetID == 0 {
		response.BadRequest(c, "无效的参数")
		return
	}
	if err := h.service.RemoveMember(conversationID, jwt.GetUserID(c), targetID); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "成员已移除", nil)
}

// UpdateChannel 更新频道元数据
func (h *ConversationHandler) UpdateChannel(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的频道ID")
		return
	}
	type req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	conv, err := h.service.UpdateChannel(conversationID, jwt.GetUserID(c), r.Title, r.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "频道已更新", response.FilterConversationInfo(conv))
}

// DeleteChannel 删除频道
func (h *ConversationHandler) DeleteChannel(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的频道ID")
		return
	}
	if err := h.service.DeleteChannel(conversationID, jwt.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "频道已删除", nil)
}
