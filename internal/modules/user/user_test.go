package user

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/kotoba-space/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.APIToken{}))
	return NewService(db)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)

	u, err := svc.Register(&RegisterDTO{Username: "hana", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "hana", u.Name, "display name falls back to the username")
	assert.Equal(t, "en", u.NativeLang)
	assert.NotEqual(t, "secret123", u.Password, "password is stored hashed")

	_, err = svc.Register(&RegisterDTO{Username: "hana", Password: "other456"})
	assert.Error(t, err, "duplicate username is rejected")

	token, logged, err := svc.Login("hana", "secret123", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, logged.ID)
	require.NotNil(t, logged.LastLoginTime)
	assert.Equal(t, "127.0.0.1", logged.LastLoginIP)

	_, _, err = svc.Login("hana", "wrong", "127.0.0.1")
	assert.Error(t, err)
	_, _, err = svc.Login("nobody", "secret123", "127.0.0.1")
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)

	u, err := svc.Register(&RegisterDTO{Username: "taro", Password: "oldpass1"})
	require.NoError(t, err)

	assert.Error(t, svc.ChangePassword(u.ID, "wrong", "newpass1"))
	require.NoError(t, svc.ChangePassword(u.ID, "oldpass1", "newpass1"))

	_, _, err = svc.Login("taro", "oldpass1", "")
	assert.Error(t, err)
	_, _, err = svc.Login("taro", "newpass1", "")
	assert.NoError(t, err)
}

func TestAPITokenLifecycle(t *testing.T) {
	svc := newTestService(t)

	u, err := svc.Register(&RegisterDTO{Username: "yuki", Password: "secret123"})
	require.NoError(t, err)

	token, err := svc.CreateAPIToken(u.ID, &CreateTokenDTO{Name: "cli"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token.Token, "ksp"))
	assert.Nil(t, token.ExpiredAt)

	tokens, err := svc.ListAPITokens(u.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "cli", tokens[0].Name)

	require.NoError(t, svc.DeleteAPIToken(u.ID, token.ID))
	tokens, err = svc.ListAPITokens(u.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
