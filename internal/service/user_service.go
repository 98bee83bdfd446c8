package service

import (
	"fmt"
	"strings"
	"time"

	"nexchat/internal/model"
	"nexchat/internal/repository"
	"nexchat/pkg/apperr"
	"nexchat/pkg/jwt"
	"nexchat/pkg/password"
)

// 登录失败统一返回同一文案，避免探测用户名是否存在
const invalidCredentialsMsg = "用户名或密码错误"

// UserService 用户服务（注册/登录/资料/注销）
type UserService struct {
	repo       *repository.UserRepository
	jwtService *jwt.JWTService
}

// NewUserService 创建UserService实例
func NewUserService(repo *repository.UserRepository, jwtService *jwt.JWTService) *UserService {
	return &UserService{repo: repo, jwtService: jwtService}
}

// Register 注册
func (s *UserService) Register(username, plainPassword string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || plainPassword == "" {
		return nil, "", apperr.Invalidf("用户名和密码不能为空")
	}
	if len(username) < 3 || len(username) > 64 {
		return nil, "", apperr.Invalidf("用户名长度须在3-64之间")
	}
	// 密码哈希
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Status:       "offline",
		LastSeen:     time.Now(),
	}
	if err := s.repo.Create(user); err != nil {
		return nil, "", err
	}
	// 默认签发 token
	token, err := s.jwtService.GenerateToken(
		fmt.Sprintf("%d", user.ID),
		map[string]interface{}{"username": user.Username},
	)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login 登录
// 用户不存在与密码错误返回完全相同的文案
func (s *UserService) Login(username, plainPassword string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || plainPassword == "" {
		return nil, "", apperr.Invalidf("用户名和密码不能为空")
	}
	u, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, "", apperr.Invalidf(invalidCredentialsMsg)
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, "", apperr.Invalidf(invalidCredentialsMsg)
	}
	token, err := s.jwtService.GenerateToken(
		fmt.Sprintf("%d", u.ID),
		map[string]interface{}{"username": u.Username},
	)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(userID uint) (*model.User, error) {
	return s.repo.GetByID(userID)
}

// UpdateProfile 更新资料字段（昵称/头像/简介）
func (s *UserService) UpdateProfile(userID uint, nickname, avatar, bio *string) (*model.User, error) {
	fields := map[string]interface{}{}
	if nickname != nil {
		fields["nickname"] = strings.TrimSpace(*nickname)
	}
	if avatar != nil {
		fields["avatar"] = strings.TrimSpace(*avatar)
	}
	if bio != nil {
		fields["bio"] = strings.TrimSpace(*bio)
	}
	if len(fields) == 0 {
		return nil, apperr.Invalidf("没有需要更新的字段")
	}
	if err := s.repo.UpdateProfile(userID, fields); err != nil {
		return nil, err
	}
	return s.repo.GetByID(userID)
}

// DeleteAccount 注销账号
// 级联清理成员关系与拉黑记录，历史消息作者引用置空
func (s *UserService) DeleteAccount(userID uint) error {
	if _, err := s.repo.GetByID(userID); err != nil {
		return err
	}
	return s.repo.Delete(userID)
}

// Logout 登出：仅更新在线状态为offline
func (s *UserService) Logout(userID uint) error {
	return s.repo.SetStatus(userID, "offline", time.Now())
}
