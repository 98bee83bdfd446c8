package service

import (
	"testing"
	"time"

	"nexchat/config"
	"nexchat/internal/model"
	"nexchat/internal/repository"
	"nexchat/pkg/jwt"
	"nexchat/pkg/websocket"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// testEnv 服务层测试环境：内存sqlite + 全套服务
type testEnv struct {
	db       *gorm.DB
	hub      *websocket.Hub
	users    *UserService
	convs    *ConversationService
	messages *MessageService
	blocks   *BlockService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Membership{},
		&model.Message{},
		&model.Block{},
		&model.Reaction{},
		&model.PinnedMessage{},
		&model.Setting{},
	); err != nil {
		t.Fatalf("自动迁移失败: %v", err)
	}

	jwtSvc := jwt.NewJWTService(config.JWTConfig{
		Secret:     "test-secret",
		ExpireTime: time.Hour,
		Issuer:     "nexchat-test",
	})

	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	blockRepo := repository.NewBlockRepository(db)

	hub := websocket.NewHub()
	convSvc := NewConversationService(convRepo, userRepo, msgRepo, hub)

	return &testEnv{
		db:       db,
		hub:      hub,
		users:    NewUserService(userRepo, jwtSvc),
		convs:    convSvc,
		messages: NewMessageService(msgRepo, convRepo, userRepo, blockRepo, convSvc, hub),
		blocks:   NewBlockService(blockRepo, convRepo, userRepo, msgRepo, hub),
	}
}

// mustRegister 注册一个测试用户并返回
func (e *testEnv) mustRegister(t *testing.T, username string) *model.User {
	t.Helper()
	u, _, err := e.users.Register(username, "password123")
	if err != nil {
		t.Fatalf("注册用户 %s 失败: %v", username, err)
	}
	return u
}
