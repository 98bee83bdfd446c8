package handler

import (
	"crypto/subtle"

	"nexchat/internal/repository"
	"nexchat/pkg/logger"
	"nexchat/pkg/redis"
	"nexchat/pkg/response"
	"nexchat/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 管理接口鉴权
// secret为空时管理面板整体关闭
func AdminAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			response.Forbidden(c, "管理面板未启用")
			c.Abort()
			return
		}
		provided := c.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			response.Unauthorized(c, "管理密钥错误")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminHandler 管理面板接口
type AdminHandler struct {
	userRepo    *repository.UserRepository
	convRepo    *repository.ConversationRepository
	msgRepo     *repository.MessageRepository
	settingRepo *repository.SettingRepository
	hub         *websocket.Hub
}

// NewAdminHandler 创建AdminHandler实例
func NewAdminHandler(
	userRepo *repository.UserRepository,
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	settingRepo *repository.SettingRepository,
	hub *websocket.Hub,
) *AdminHandler {
	return &AdminHandler{
		userRepo:    userRepo,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		settingRepo: settingRepo,
		hub:         hub,
	}
}

// Stats 全局统计
func (h *AdminHandler) Stats(c *gin.Context) {
	userCount, err := h.userRepo.Count()
	if err != nil {
		respondError(c, err)
		return
	}
	convCount, err := h.convRepo.Count()
	if err != nil {
		respondError(c, err)
		return
	}
	msgCount, err := h.msgRepo.Count()
	if err != nil {
		respondError(c, err)
		return
	}

	onlineCount, err := redis.GetOnlineCount()
	if err != nil {
		logger.Warn("获取在线人数失败: " + err.Error())
		onlineCount = int64(h.hub.OnlineCount())
	}
	msgCounter, convCounter, err := redis.GetStatsCounters()
	if err != nil {
		logger.Warn("获取统计计数器失败: " + err.Error())
	}

	response.Success(c, gin.H{
		"users":                 userCount,
		"conversations":         convCount,
		"messages":              msgCount,
		"online":                onlineCount,
		"messages_counter":      msgCounter,
		"conversations_counter": convCounter,
	})
}

// ListUsers 用户列表
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	users, err := h.userRepo.List(pageSize, (page-1)*pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.userRepo.Count()
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]*response.UserInfo, 0, len(users))
	for _, u := range users {
		list = append(list, response.FilterUserInfo(u))
	}
	response.Success(c, gin.H{"total": total, "users": list})
}

// DeleteUser 删除用户及其关联数据
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID := paramUint(c, "user_id")
	if userID == 0 {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	if err := h.userRepo.Delete(userID); err != nil {
		respondError(c, err)
		return
	}
	logger.Info("管理员删除用户: " + c.Param("user_id"))
	response.SuccessWithMessage(c, "用户已删除", nil)
}

// DeleteMessage 删除任意消息(不受作者限制)
func (h *AdminHandler) DeleteMessage(c *gin.Context) {
	messageID := paramUint(c, "message_id")
	if messageID == 0 {
		response.BadRequest(c, "无效的消息ID")
		return
	}

	message, err := h.msgRepo.GetByID(messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	conv, err := h.convRepo.GetByID(message.ConversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.msgRepo.Delete(messageID); err != nil {
		respondError(c, err)
		return
	}

	// 删除落库后通知房间内客户端
	h.hub.Broadcast(conv.ID, websocket.Event(websocket.DeleteMessageEvent(conv.Kind), map[string]interface{}{
		"message_id":      message.ID,
		"conversation_id": conv.ID,
	}))
	response.SuccessWithMessage(c, "消息已删除", nil)
}

// GetSettings 全部运行时配置项
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingRepo.All()
	if err != nil {
		respondError(c, err)
		return
	}

	kv := make(map[string]string, len(settings))
	for _, s := range settings {
		kv[s.Key] = s.Value
	}
	response.Success(c, kv)
}

// SetSetting 写入运行时配置项
func (h *AdminHandler) SetSetting(c *gin.Context) {
	type req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.settingRepo.Set(r.Key, r.Value); err != nil {
		respondError(c, err)
		return
	}

	// 配置变更推送给所有在线客户端
	h.hub.BroadcastGlobal(websocket.Event(websocket.EventStatsUpdate, map[string]interface{}{
		"setting": r.Key,
	}))
	response.SuccessWithMessage(c, "配置已更新", nil)
}
