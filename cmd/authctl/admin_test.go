package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService() *services.UserService {
	return services.NewUserService(nil, memory.NewStore(nil), cryptox.NewBcryptHasher(bcrypt.MinCost))
}

func TestCreateAdmin(t *testing.T) {
	us := newUserService()
	ctx := context.Background()

	user, err := createAdmin(ctx, us, " Root@Example.com ", []byte("Adm1n!pass"), []byte("Adm1n!pass"))
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", user.Email)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.Verified)

	_, err = createAdmin(ctx, us, "root@example.com", []byte("Adm1n!pass"), []byte("Adm1n!pass"))
	assert.Equal(t, common.CodeAlreadyExists, common.CodeOf(err))
}

func TestCreateAdmin_RejectsBadPasswords(t *testing.T) {
	us := newUserService()
	ctx := context.Background()

	_, err := createAdmin(ctx, us, "a@x.com", []byte("weak"), []byte("weak"))
	require.Error(t, err)
	assert.Equal(t, "Password does not meet complexity requirements", err.Error())

	_, err = createAdmin(ctx, us, "a@x.com", []byte("Adm1n!pass"), []byte("Adm1n!other"))
	require.Error(t, err)
	assert.Equal(t, "Password and password confirmation do not match", err.Error())
}

func TestPromptPassword(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return []byte("secret"), nil }
	var out bytes.Buffer
	pw, err := promptPassword(&out, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), pw)
	assert.Equal(t, "Password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	_, err = promptPassword(&out, "Password: ")
	assert.ErrorContains(t, err, "not a terminal")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["create-admin"])
	assert.NotNil(t, root.PersistentFlags().Lookup("dsn"))
}

func TestCreateAdminCmd_RequiresEmail(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"create-admin"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "email" not set`)
}
