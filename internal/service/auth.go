package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/langchou/fleetdash/internal/models"
)

// UserInput 新建用户参数
type UserInput struct {
	Username string      `json:"username" validate:"required,min=3,max=64"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     models.Role `json:"role" validate:"required,oneof=admin upload guest"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService 登录与会话服务
type AuthService struct {
	logger   *zap.Logger
	users    UserStore
	ttl      time.Duration
	cost     int
	validate *validator.Validate
	now      func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(logger *zap.Logger, users UserStore, ttl time.Duration) *AuthService {
	return &AuthService{
		logger:   logger,
		users:    users,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Login 校验用户名密码并创建会话
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("Login failed, unknown user", zap.String("username", username))
			return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
		}
		return nil, storeError("get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Login failed, wrong password", zap.String("username", username))
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}

	now := s.now()
	session := &models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.users.CreateSession(ctx, session); err != nil {
		return nil, storeError("create session", err)
	}

	s.logger.Info("User logged in", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return &LoginResult{Token: session.Token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Authenticate 通过会话令牌获取用户
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, fmt.Errorf("%w: malformed token", ErrUnauthorized)
	}

	session, err := s.users.GetSession(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: unknown session", ErrUnauthorized)
		}
		return nil, storeError("get session", err)
	}
	if session.Expired(s.now()) {
		_ = s.users.DeleteSession(ctx, token)
		return nil, fmt.Errorf("%w: session expired", ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, storeError("get user", err)
	}
	return user, nil
}

// Logout 删除会话
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.users.DeleteSession(ctx, token); err != nil {
		return storeError("delete session", err)
	}
	return nil
}

// CreateUser 新建用户
func (s *AuthService) CreateUser(ctx context.Context, input UserInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     input.Username,
		PasswordHash: string(hash),
		Role:         input.Role,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError("create user", err)
	}

	s.logger.Info("User created", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return user, nil
}

// Bootstrap 用户表为空时创建初始管理员，返回是否创建
func (s *AuthService) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, storeError("count users", err)
	}
	if count > 0 {
		return false, nil
	}
	if password == "" {
		s.logger.Warn("No users exist and ADMIN_PASSWORD is empty, skipping admin bootstrap")
		return false, nil
	}

	if _, err := s.CreateUser(ctx, UserInput{Username: username, Password: password, Role: models.RoleAdmin}); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpiredSessions 清理过期会话
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.users.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, storeError("delete expired sessions", err)
	}
	if n > 0 {
		s.logger.Debug("Purged expired sessions", zap.Int64("count", n))
	}
	return n, nil
}
