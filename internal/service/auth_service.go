package service

import (
	"crypto/subtle"
	"errors"
	"quizcert/internal/config"
	"quizcert/internal/util"
	"sync"

	"github.com/gin-contrib/sessions"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidPassword = util.NewValidationError("password", "Invalid password")

// Authorizer 判断当前会话是否具有管理员权限
type Authorizer interface {
	IsAuthorized(session sessions.Session) bool
}

// AdminAuthenticator 在 Authorizer 基础上负责登录与注销
type AdminAuthenticator interface {
	Authorizer
	Login(session sessions.Session, password string) error
	Logout(session sessions.Session) error
}

// SharedSecretAuth 单一共享密码。配置了 password_hash 时使用 bcrypt 校验
type SharedSecretAuth struct {
	mu       sync.RWMutex
	password []byte
	hash     []byte
}

func NewSharedSecretAuth(cfg config.AdminConfig) *SharedSecretAuth {
	a := &SharedSecretAuth{}
	a.Reload(cfg)
	return a
}

// Reload 配置热更新时替换密码
func (a *SharedSecretAuth) Reload(cfg config.AdminConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.password = []byte(cfg.Password)
	a.hash = []byte(cfg.PasswordHash)
}

func (a *SharedSecretAuth) Verify(password string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if password == "" {
		return false
	}
	if len(a.hash) > 0 {
		return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	}
	if len(a.password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a.password, []byte(password)) == 1
}

func (a *SharedSecretAuth) IsAuthorized(session sessions.Session) bool {
	if session == nil {
		return false
	}
	ok, _ := session.Get(util.SessionAdminKey).(bool)
	return ok
}

func (a *SharedSecretAuth) Login(session sessions.Session, password string) error {
	if !a.Verify(password) {
		return ErrInvalidPassword
	}
	session.Set(util.SessionAdminKey, true)
	return session.Save()
}

// Logout 只清除管理员标记，保留学生姓名
func (a *SharedSecretAuth) Logout(session sessions.Session) error {
	session.Delete(util.SessionAdminKey)
	if err := session.Save(); err != nil {
		return errors.Join(util.ErrStorage, err)
	}
	return nil
}
