package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
)

// newTestDB returns a fresh, fully migrated in-memory database that is
// closed when the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestBoard(t *testing.T, db *DB, owner string) *model.Board {
	t.Helper()
	b := &model.Board{
		Name:    "Sprint",
		OwnerID: owner,
		Members: []model.Member{{UserID: owner, Role: model.RoleOwner}},
	}
	require.NoError(t, db.CreateBoard(context.Background(), b))
	return b
}

func createTestList(t *testing.T, db *DB, boardID string, pos int) *model.List {
	t.Helper()
	l := &model.List{BoardID: boardID, Title: "Todo", Position: pos}
	require.NoError(t, db.CreateList(context.Background(), l))
	return l
}

func TestSchemaVersion(t *testing.T) {
	db := newTestDB(t)

	v, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

// =========================================================================
// USERS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{Username: "alice", PasswordHash: "hash"}
	require.NoError(t, db.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := db.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
}

func TestCreateUser_Duplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "h"}))
	err := db.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "h"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestUserNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetUserByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, db.UpdateUserPassword(ctx, "nonexistent", "h"), apperror.ErrNotFound)
	assert.ErrorIs(t, db.DeleteUser(ctx, "nonexistent"), apperror.ErrNotFound)
}

func TestUpdateUserPassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{Username: "alice", PasswordHash: "old"}
	require.NoError(t, db.CreateUser(ctx, u))
	require.NoError(t, db.UpdateUserPassword(ctx, u.ID, "new"))

	got, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)
}

// =========================================================================
// BOARDS
// =========================================================================

func TestBoardMembersRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := createTestBoard(t, db, "alice")

	b.Members = append(b.Members,
		model.Member{UserID: "bob", Role: model.RoleAdmin},
		model.Member{UserID: "carol", Role: model.RoleMember},
	)
	b.IsFavorite = true
	require.NoError(t, db.UpdateBoard(ctx, b))

	got, err := db.GetBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)
	assert.Equal(t, []model.Member{
		{UserID: "alice", Role: model.RoleOwner},
		{UserID: "bob", Role: model.RoleAdmin},
		{UserID: "carol", Role: model.RoleMember},
	}, got.Members)

	boards, err := db.ListBoardsForMember(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Len(t, boards[0].Members, 3)

	boards, err = db.ListBoardsForMember(ctx, "dave")
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func TestDeleteBoard_CascadesInDatabase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := createTestBoard(t, db, "alice")
	l := createTestList(t, db, b.ID, 0)
	c := &model.Card{ListID: l.ID, UserID: "alice", Title: "Fix bug"}
	require.NoError(t, db.CreateCard(ctx, c))
	cm := &model.Comment{CardID: c.ID, UserID: "alice", Text: "hi"}
	require.NoError(t, db.CreateComment(ctx, cm))

	require.NoError(t, db.DeleteBoard(ctx, b.ID))

	_, err := db.GetList(ctx, l.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = db.GetCard(ctx, c.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = db.GetComment(ctx, cm.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// LISTS AND CARDS
// =========================================================================

func TestCreateList_UnknownBoard(t *testing.T) {
	db := newTestDB(t)
	err := db.CreateList(context.Background(), &model.List{BoardID: "missing", Title: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListsByBoard_Ordering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := createTestBoard(t, db, "alice")

	second := createTestList(t, db, b.ID, 1)
	first := createTestList(t, db, b.ID, 0)

	lists, err := db.ListsByBoard(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, first.ID, lists[0].ID)
	assert.Equal(t, second.ID, lists[1].ID)

	n, err := db.CountListsByBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCardNestedFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := createTestBoard(t, db, "alice")
	l := createTestList(t, db, b.ID, 0)

	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &model.Card{
		ListID:  l.ID,
		UserID:  "alice",
		Title:   "Fix bug",
		DueDate: &due,
		Labels:  []model.Label{{ID: "l1", Name: "bug", Color: "red"}},
		Checklist: []model.ChecklistItem{
			{ID: "i1", Text: "reproduce", CreatedAt: due},
		},
	}
	require.NoError(t, db.CreateCard(ctx, c))

	got, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, "bug", got.Labels[0].Name)
	assert.Equal(t, "reproduce", got.Checklist[0].Text)
	assert.NotNil(t, got.Attachments)
	assert.NotNil(t, got.Comments)

	got.DueDate = nil
	got.Labels = nil
	require.NoError(t, db.UpdateCard(ctx, got))

	again, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, again.DueDate)
	assert.Empty(t, again.Labels)
	assert.NotNil(t, again.Labels)
}

func TestUpdateCard_Move(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := createTestBoard(t, db, "alice")
	from := createTestList(t, db, b.ID, 0)
	to := createTestList(t, db, b.ID, 1)

	c := &model.Card{ListID: from.ID, UserID: "alice", Title: "Fix bug"}
	require.NoError(t, db.CreateCard(ctx, c))

	c.ListID = to.ID
	require.NoError(t, db.UpdateCard(ctx, c))

	n, err := db.CountCardsByList(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	cards, err := db.CardsByList(ctx, to.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	c.ListID = "missing"
	assert.ErrorIs(t, db.UpdateCard(ctx, c), apperror.ErrNotFound)
}

// =========================================================================
// REVOCATION
// =========================================================================

func TestRevocation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.Revoke(ctx, "expired", now.Add(-time.Hour)))
	require.NoError(t, db.Revoke(ctx, "live", now.Add(time.Hour)))
	require.NoError(t, db.Revoke(ctx, "live", now.Add(-time.Hour)))

	revoked, err := db.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	n, err := db.PurgeRevoked(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	revoked, err = db.IsRevoked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked)
	revoked, err = db.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}
