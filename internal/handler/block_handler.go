package handler

import (
	"nexchat/internal/service"
	"nexchat/pkg/jwt"
	"nexchat/pkg/response"

	"github.com/gin-gonic/gin"
)

// BlockHandler 拉黑接口
type BlockHandler struct {
	service *service.BlockService
}

// NewBlockHandler 创建BlockHandler实例
func NewBlockHandler(s *service.BlockService) *BlockHandler {
	return &BlockHandler{service: s}
}

// Block 拉黑用户
func (h *BlockHandler) Block(c *gin.Context) {
	targetID := paramUint(c, "user_id")
	if targetID == 0 {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	if err := h.service.Block(jwt.GetUserID(c), targetID); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已拉黑", nil)
}

// Unblock 解除拉黑
func (h *BlockHandler) Unblock(c *gin.Context) {
	targetID := paramUint(c, "user_id")
	if targetID == 0 {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	if err := h.service.Unblock(jwt.GetUserID(c), targetID); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已解除拉黑", nil)
}

// Status 查询双方拉黑状态
func (h *BlockHandler) Status(c *gin.Context) {
	targetID := paramUint(c, "user_id")
	if targetID == 0 {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	blockedByMe, blockedMe, err := h.service.Status(jwt.GetUserID(c), targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"blocked_by_me": blockedByMe,
		"blocked_me":    blockedMe,
	})
}

// List 查询我拉黑的用户列表
func (h *BlockHandler) List(c *gin.Context) {
	blocks, err := h.service.List(jwt.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]gin.H, 0, len(blocks))
	for _, b := range blocks {
		list = append(list, gin.H{
			"user_id":    b.BlockedID,
			"created_at": b.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	response.Success(c, list)
}
