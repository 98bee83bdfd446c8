package handler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nexchat/config"
	"nexchat/internal/service"
	"nexchat/pkg/jwt"
	"nexchat/pkg/logger"
	"nexchat/pkg/response"

	"github.com/gin-gonic/gin"
)

// UploadHandler 附件上传接口
type UploadHandler struct {
	messages *service.MessageService
	cfg      config.UploadConfig
}

// NewUploadHandler 创建UploadHandler实例
func NewUploadHandler(messages *service.MessageService, cfg config.UploadConfig) *UploadHandler {
	return &UploadHandler{messages: messages, cfg: cfg}
}

// Upload 上传附件并作为消息发送到会话
func (h *UploadHandler) Upload(c *gin.Context) {
	conversationID := paramUint(c, "id")
	if conversationID == 0 {
		response.BadRequest(c, "无效的会话ID")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "缺少上传文件")
		return
	}

	maxBytes := int64(h.cfg.MaxSizeMB) * 1024 * 1024
	if file.Size > maxBytes {
		response.BadRequest(c, fmt.Sprintf("文件大小超过限制(%dMB)", h.cfg.MaxSizeMB))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !h.extAllowed(ext) {
		response.BadRequest(c, "不支持的文件类型: "+ext)
		return
	}

	// 存储名使用随机串, 避免路径穿越和重名覆盖
	storedName := randomFileName() + ext
	if err := os.MkdirAll(h.cfg.Dir, 0o755); err != nil {
		logger.Error("创建上传目录失败: " + err.Error())
		response.InternalError(c, "文件保存失败")
		return
	}
	dst := filepath.Join(h.cfg.Dir, storedName)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		logger.Error("保存上传文件失败: " + err.Error())
		response.InternalError(c, "文件保存失败")
		return
	}

	caption := c.PostForm("caption")
	message, err := h.messages.SendAttachment(conversationID, jwt.GetUserID(c),
		"/uploads/"+storedName, filepath.Base(file.Filename), caption)
	if err != nil {
		// 消息未落库时清理孤立文件
		_ = os.Remove(dst)
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "附件已发送", response.FilterMessageInfo(message))
}

func (h *UploadHandler) extAllowed(ext string) bool {
	for _, allowed := range h.cfg.AllowedExts {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func randomFileName() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", os.Getpid())
	}
	return hex.EncodeToString(buf)
}
