package handler

import (
	"nexchat/internal/service"
	"nexchat/pkg/jwt"
	"nexchat/pkg/redis"
	"nexchat/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户接口
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler 创建UserHandler实例
func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.Register(r.Username, r.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie(jwt.TokenCookieName, token, 0, "/", "", false, true)
	response.SuccessWithMessage(c, "注册成功", &response.AuthResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.Login(r.Username, r.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie(jwt.TokenCookieName, token, 0, "/", "", false, true)
	response.SuccessWithMessage(c, "登录成功", &response.AuthResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// GetProfile 获取用户资料
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.service.GetProfile(jwt.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, response.FilterUserInfo(user))
}

// UpdateProfile 更新资料字段
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	type req struct {
		Nickname *string `json:"nickname"`
		Avatar   *string `json:"avatar"`
		Bio      *string `json:"bio"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.service.UpdateProfile(jwt.GetUserID(c), r.Nickname, r.Avatar, r.Bio)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "资料已更新", response.FilterUserInfo(user))
}

// DeleteAccount 注销账号
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.service.DeleteAccount(jwt.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(jwt.TokenCookieName, "", -1, "/", "", false, true)
	response.SuccessWithMessage(c, "账号已注销", nil)
}

// Logout 用户登出：清除cookie并更新在线状态
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(jwt.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(jwt.TokenCookieName, "", -1, "/", "", false, true)
	response.SuccessWithMessage(c, "已离线", nil)
}

// GetOnlineUsers 获取在线用户列表
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	userIDs, err := redis.GetOnlineUsers()
	if err != nil {
		respondError(c, err)
		return
	}

	var onlineUsers []gin.H
	for _, userID := range userIDs {
		presence, err := redis.GetUserPresence(userID)
		if err != nil {
			continue
		}
		onlineUsers = append(onlineUsers, gin.H{
			"user_id":   presence.UserID,
			"username":  presence.Username,
			"status":    presence.Status,
			"last_seen": presence.LastSeen.Format("2006-01-02 15:04:05"),
		})
	}

	response.Success(c, gin.H{
		"online_count": len(onlineUsers),
		"users":        onlineUsers,
	})
}

// CheckUserOnline 检查指定用户是否在线
func (h *UserHandler) CheckUserOnline(c *gin.Context) {
	userID := paramUint(c, "user_id")
	if userID == 0 {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	online, err := redis.IsUserOnline(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	result := gin.H{
		"user_id": userID,
		"online":  online,
	}
	if online {
		if presence, err := redis.GetUserPresence(userID); err == nil {
			result["username"] = presence.Username
			result["last_seen"] = presence.LastSeen.Format("2006-01-02 15:04:05")
		}
	}

	response.Success(c, result)
}
