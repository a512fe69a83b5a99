package user

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/automercado/automercado/internal/common/apperr"
	"github.com/automercado/automercado/internal/common/auth"
	"github.com/automercado/automercado/internal/common/config"
	"github.com/automercado/automercado/internal/common/logger"
	"gorm.io/gorm"
)

// Service 封装卖家账号的核心用例（注册 / 登录 / 查询），不依赖传输层。
type Service struct {
	repo    *Repo
	authCfg config.AuthConfig
	log     logger.Logger
}

func NewService(db *gorm.DB, authCfg config.AuthConfig, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: NewRepo(db), authCfg: authCfg, log: log}
}

// RegisterInput 注册入参。
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	City      string
	Province  string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validationf("a valid email is required")
	}
	if len(in.Password) < 6 {
		return nil, apperr.Validationf("password must be at least 6 characters")
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate salt", err)
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	u := &User{
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		City:         strings.TrimSpace(in.City),
		Province:     strings.TrimSpace(in.Province),
		Role:         RoleIndividual,
		Active:       true,
		CanPublish:   true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", u.ID).Info("seller registered")
	return u, nil
}

// Authenticate 校验邮箱+密码，成功则签发 access token。
// 凭证错误统一返回 permission 错误，不区分“邮箱不存在”和“密码错误”。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	if s == nil || s.repo == nil {
		return nil, "", fmt.Errorf("service not initialized")
	}

	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, "", apperr.Permissionf("invalid credentials")
		}
		return nil, "", err
	}
	if !u.Active {
		return nil, "", apperr.Permissionf("account is disabled")
	}
	if !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return nil, "", apperr.Permissionf("invalid credentials")
	}

	ttl := time.Duration(s.authCfg.TokenTTLHours) * time.Hour
	token, _, err := auth.GenerateAccessToken(s.authCfg, strconv.FormatUint(uint64(u.ID), 10), []string{string(u.Role)}, ttl)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "issue token", err)
	}
	return u, token, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByID(ctx, id)
}
