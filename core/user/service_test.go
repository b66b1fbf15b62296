package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

type fakeRepository struct {
	mu    sync.Mutex
	users map[int64]User
	pk    int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[int64]User)}
}

func (repo *fakeRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, usr := range repo.users {
		excluded := false
		for _, excl := range excludedUsers {
			excluded = excluded || excl.ID == usr.ID
		}
		if usr.Email == email && !excluded {
			return ErrEmailExists
		}
	}
	return nil
}

func (repo *fakeRepository) CreateUser(_ context.Context, usr User, _ ...core.DBExecutor) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.pk++
	usr.ID = repo.pk
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeRepository) GetUserByID(_ context.Context, id int64, _ ...core.DBExecutor) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if usr, ok := repo.users[id]; ok {
		return usr, nil
	}
	return User{}, ErrNotFound
}

func (repo *fakeRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, usr := range repo.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (repo *fakeRepository) UpdateUser(_ context.Context, usr User, _ ...core.DBExecutor) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.users[usr.ID]; !ok {
		return User{}, ErrNotFound
	}
	repo.users[usr.ID] = usr
	return usr, nil
}

type recordingMailService struct {
	sent []*core.EmailMessage
}

func (svc *recordingMailService) SendMessages(messages ...*core.EmailMessage) {
	svc.sent = append(svc.sent, messages...)
}

func (svc *recordingMailService) Wait(context.Context) error { return nil }

func newTestService(t *testing.T) (*Service, *recordingMailService) {
	t.Helper()
	mailSvc := new(recordingMailService)
	conf := &core.Config{SecretKey: "secret", PasswordResetTimeout: 3 * 24 * time.Hour}
	return NewService(newFakeRepository(), mailSvc, conf), mailSvc
}

const strongPwd = "Gr@deBook42"

func TestService_CreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	usr, err := svc.Create(ctx, NewUser{Name: "Jane Doe", Email: "jane@school.test", Password: strongPwd})
	require.NoError(t, err)
	assert.NotZero(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.False(t, usr.LastLogin.Valid)

	_, err = svc.Create(ctx, NewUser{Name: "Jane 2", Email: "jane@school.test", Password: strongPwd})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ErrEmailExists.Error(), vErr.FieldMap()["email"])

	got, err := svc.Authenticate(ctx, "  JANE@school.test ", strongPwd)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = svc.Authenticate(ctx, "jane@school.test", "wrong")
	assert.Equal(t, ErrNotFound, err)

	_, err = svc.Authenticate(ctx, "nobody@school.test", strongPwd)
	assert.Equal(t, ErrNotFound, err)

	got, err = svc.SetLastLogin(ctx, got)
	require.NoError(t, err)
	assert.True(t, got.LastLogin.Valid)
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, mailSvc := newTestService(t)

	usr, err := svc.Create(ctx, NewUser{Name: "Jane Doe", Email: "jane@school.test", Password: strongPwd})
	require.NoError(t, err)

	assert.Equal(t, ErrNotFound, svc.RequestPasswordReset(ctx, "nobody@school.test"))
	assert.Empty(t, mailSvc.sent)

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@school.test"))
	require.Len(t, mailSvc.sent, 1)
	msg := mailSvc.sent[0]
	assert.Equal(t, "jane@school.test", msg.To[0].Address)
	assert.Equal(t, passwordResetTemplate, msg.TemplateName)
	data, ok := msg.TemplateData.(PasswordResetData)
	require.True(t, ok)
	assert.Equal(t, EncodeUID(usr), data.UID)

	tests := []struct {
		name      string
		data      ResetUserPassword
		wantField string
	}{
		{name: "invalid uid", data: ResetUserPassword{UID: "!!", Token: data.Token, Password: "N3w-Passw0rd"}, wantField: "token"},
		{name: "unknown uid", data: ResetUserPassword{UID: EncodeUID(User{ID: 99}), Token: data.Token, Password: "N3w-Passw0rd"}, wantField: "token"},
		{name: "invalid token", data: ResetUserPassword{UID: data.UID, Token: "HE4TS-sig", Password: "N3w-Passw0rd"}, wantField: "token"},
		{name: "weak password", data: ResetUserPassword{UID: data.UID, Token: data.Token, Password: "short"}, wantField: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ResetPassword(ctx, tt.data)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.FieldMap(), tt.wantField)
		})
	}

	_, err = svc.ResetPassword(ctx, ResetUserPassword{UID: data.UID, Token: data.Token, Password: "N3w-Passw0rd"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "jane@school.test", "N3w-Passw0rd")
	assert.NoError(t, err)

	// the token cannot be reused once the password changed
	_, err = svc.ResetPassword(ctx, ResetUserPassword{UID: data.UID, Token: data.Token, Password: "An0ther-Passw0rd"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldMap(), "token")
}

func TestService_RequestPasswordResetInactive(t *testing.T) {
	ctx := context.Background()
	svc, mailSvc := newTestService(t)

	usr, err := svc.Create(ctx, NewUser{Name: "Jane Doe", Email: "jane@school.test", Password: strongPwd})
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, usr, false)
	require.NoError(t, err)

	assert.Equal(t, ErrNotFound, svc.RequestPasswordReset(ctx, "jane@school.test"))
	assert.Empty(t, mailSvc.sent)
}
