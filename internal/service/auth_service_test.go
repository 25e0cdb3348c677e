package service

import (
	"quizcert/internal/config"
	"quizcert/internal/util"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memorySession 内存实现，仅用于测试
type memorySession struct {
	values map[interface{}]interface{}
	saves  int
}

func newMemorySession() *memorySession {
	return &memorySession{values: map[interface{}]interface{}{}}
}

func (s *memorySession) ID() string                                 { return "test" }
func (s *memorySession) Get(key interface{}) interface{}            { return s.values[key] }
func (s *memorySession) Set(key interface{}, val interface{})       { s.values[key] = val }
func (s *memorySession) Delete(key interface{})                     { delete(s.values, key) }
func (s *memorySession) Clear()                                     { s.values = map[interface{}]interface{}{} }
func (s *memorySession) AddFlash(value interface{}, vars ...string) {}
func (s *memorySession) Flashes(vars ...string) []interface{}       { return nil }
func (s *memorySession) Options(sessions.Options)                   {}
func (s *memorySession) Save() error                                { s.saves++; return nil }

func TestSharedSecretAuthPlainPassword(t *testing.T) {
	auth := NewSharedSecretAuth(config.AdminConfig{Password: "s3cret"})

	assert.True(t, auth.Verify("s3cret"))
	assert.False(t, auth.Verify("S3cret"))
	assert.False(t, auth.Verify(""))
}

func TestSharedSecretAuthHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	// hash 优先于明文密码
	auth := NewSharedSecretAuth(config.AdminConfig{Password: "plain", PasswordHash: string(hash)})
	assert.True(t, auth.Verify("hunter2"))
	assert.False(t, auth.Verify("plain"))
}

func TestSharedSecretAuthUnconfigured(t *testing.T) {
	auth := NewSharedSecretAuth(config.AdminConfig{})
	assert.False(t, auth.Verify(""))
	assert.False(t, auth.Verify("anything"))
}

func TestSharedSecretAuthReload(t *testing.T) {
	auth := NewSharedSecretAuth(config.AdminConfig{Password: "old"})
	auth.Reload(config.AdminConfig{Password: "new"})

	assert.False(t, auth.Verify("old"))
	assert.True(t, auth.Verify("new"))
}

func TestSharedSecretAuthSession(t *testing.T) {
	auth := NewSharedSecretAuth(config.AdminConfig{Password: "s3cret"})
	session := newMemorySession()
	session.Set(util.SessionStudent, "Ana")

	assert.False(t, auth.IsAuthorized(session))
	assert.False(t, auth.IsAuthorized(nil))

	err := auth.Login(session, "wrong")
	assert.ErrorIs(t, err, util.ErrValidation)
	assert.False(t, auth.IsAuthorized(session))
	assert.Zero(t, session.saves)

	require.NoError(t, auth.Login(session, "s3cret"))
	assert.True(t, auth.IsAuthorized(session))

	require.NoError(t, auth.Logout(session))
	assert.False(t, auth.IsAuthorized(session))
	assert.Equal(t, "Ana", session.Get(util.SessionStudent))
}
