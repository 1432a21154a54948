package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vigil-ops/vigil/internal/access"
)

type fakeRepo struct {
	users []access.User
	roles []access.Role
	err   error
}

func (f *fakeRepo) ListUsers(context.Context) ([]access.User, error) {
	return f.users, f.err
}

func (f *fakeRepo) GetUser(_ context.Context, id access.UserID) (access.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return access.User{}, ErrNotFound
}

func (f *fakeRepo) ListRoles(context.Context) ([]access.Role, error) {
	return f.roles, f.err
}

func TestFoldStripsDiacritics(t *testing.T) {
	require.Equal(t, "nunez", fold("Núñez"))
	require.Equal(t, "francois", fold("François"))
	require.Equal(t, "plain", fold("plain"))
}

func TestMatches(t *testing.T) {
	require.True(t, matches("nunez", "Ana Núñez", "B-1042"))
	require.True(t, matches("  1042 ", "Ana Núñez", "B-1042"))
	require.True(t, matches("", "anything"))
	require.False(t, matches("garcia", "Ana Núñez", "B-1042"))
}

func TestSearchUsersFilters(t *testing.T) {
	repo := &fakeRepo{users: []access.User{
		{ID: "u1", Name: "Ana Núñez", Role: "ROLE_A", BadgeNo: "B-1042"},
		{ID: "u2", Name: "Bob García", Role: "ROLE_B", BadgeNo: "B-2001"},
		{ID: "u3", Name: "Carol Smith", Role: "ROLE_A", BadgeNo: "B-3007"},
	}}
	svc := NewService(repo)

	found, err := svc.SearchUsers(context.Background(), "nunez")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, access.UserID("u1"), found[0].ID)

	found, err = svc.SearchUsers(context.Background(), "B-2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, access.UserID("u2"), found[0].ID)

	found, err = svc.SearchUsers(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, found, 3)
}

func TestSearchUsersPropagatesRepoError(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection reset")}
	svc := NewService(repo)

	_, err := svc.SearchUsers(context.Background(), "any")
	require.Error(t, err)
}

func TestGetUserNotFound(t *testing.T) {
	svc := NewService(&fakeRepo{})
	_, err := svc.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}
