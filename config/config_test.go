package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.Server.Port != "8080" {
		t.Fatalf("默认端口 = %q, 期望 8080", cfg.Server.Port)
	}
	if cfg.WebSocket.TypingRevert != 3*time.Second {
		t.Fatalf("TypingRevert = %v, 期望 3s", cfg.WebSocket.TypingRevert)
	}
	if cfg.WebSocket.MediaRevert != 2*time.Second {
		t.Fatalf("MediaRevert = %v, 期望 2s", cfg.WebSocket.MediaRevert)
	}
	if cfg.Upload.MaxSizeMB != 10 {
		t.Fatalf("上传大小限制 = %d, 期望 10", cfg.Upload.MaxSizeMB)
	}
	if len(cfg.Upload.AllowedExts) == 0 {
		t.Fatal("默认扩展名白名单为空")
	}
	// 管理面板默认关闭
	if cfg.Admin.Secret != "" {
		t.Fatal("管理密钥默认应为空")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JWT_EXPIRE_TIME", "2h")
	t.Setenv("WS_TYPING_REVERT", "5s")
	t.Setenv("UPLOAD_ALLOWED_EXTS", ".png,.gif")
	t.Setenv("ADMIN_SECRET", "topsecret")

	cfg := LoadConfig()

	if cfg.Server.Port != "9090" {
		t.Fatalf("端口 = %q, 期望 9090", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Fatalf("数据库host = %q", cfg.Database.Host)
	}
	if cfg.JWT.ExpireTime != 2*time.Hour {
		t.Fatalf("JWT过期时间 = %v, 期望 2h", cfg.JWT.ExpireTime)
	}
	if cfg.WebSocket.TypingRevert != 5*time.Second {
		t.Fatalf("TypingRevert = %v, 期望 5s", cfg.WebSocket.TypingRevert)
	}
	if len(cfg.Upload.AllowedExts) != 2 || cfg.Upload.AllowedExts[0] != ".png" {
		t.Fatalf("扩展名白名单 = %v", cfg.Upload.AllowedExts)
	}
	if cfg.Admin.Secret != "topsecret" {
		t.Fatalf("管理密钥 = %q", cfg.Admin.Secret)
	}
}
