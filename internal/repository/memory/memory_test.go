package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/kanban/internal/apperror"
	"github.com/sakif/kanban/internal/model"
)

// =========================================================================
// HELPERS
// =========================================================================

func newBoard(t *testing.T, s *Store, owner string) *model.Board {
	t.Helper()
	b := &model.Board{
		Name:    "Sprint",
		OwnerID: owner,
		Members: []model.Member{{UserID: owner, Role: model.RoleOwner}},
	}
	require.NoError(t, s.CreateBoard(context.Background(), b))
	return b
}

func newList(t *testing.T, s *Store, boardID, title string, pos int) *model.List {
	t.Helper()
	l := &model.List{BoardID: boardID, Title: title, Position: pos}
	require.NoError(t, s.CreateList(context.Background(), l))
	return l
}

// =========================================================================
// USERS
// =========================================================================

func TestCreateUser_DuplicateUsername(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "h"}))

	err := s.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "h2"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "want Conflict, got %v", err)
}

func TestDeleteUser_FreesUsername(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &model.User{Username: "alice"}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NoError(t, s.DeleteUser(ctx, u.ID))

	_, err := s.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.NoError(t, s.CreateUser(ctx, &model.User{Username: "alice"}))
}

func TestCreateUser_AssignsUniqueIncreasingIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	var prev string
	for i := 0; i < 50; i++ {
		u := &model.User{Username: string(rune('a'+i%26)) + time.Now().Format("150405.000000000")}
		require.NoError(t, s.CreateUser(ctx, u))
		assert.Greater(t, u.ID, prev)
		prev = u.ID
	}
}

// =========================================================================
// BOARDS
// =========================================================================

func TestGetBoard_ReturnsCopy(t *testing.T) {
	s := New()
	b := newBoard(t, s, "alice")

	got, err := s.GetBoard(context.Background(), b.ID)
	require.NoError(t, err)
	got.Members[0].Role = model.RoleMember
	got.Name = "mutated"

	again, err := s.GetBoard(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sprint", again.Name)
	assert.Equal(t, model.RoleOwner, again.Members[0].Role)
}

func TestListBoardsForMember_FollowsMemberChanges(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := newBoard(t, s, "alice")

	boards, err := s.ListBoardsForMember(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, boards)

	b.Members = append(b.Members, model.Member{UserID: "bob", Role: model.RoleMember})
	require.NoError(t, s.UpdateBoard(ctx, b))

	boards, err = s.ListBoardsForMember(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, b.ID, boards[0].ID)

	b.Members = b.Members[:1]
	require.NoError(t, s.UpdateBoard(ctx, b))
	boards, err = s.ListBoardsForMember(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, boards)
}

// =========================================================================
// LISTS AND CARDS
// =========================================================================

func TestListsByBoard_OrderedByPositionThenCreation(t *testing.T) {
	s := New()
	b := newBoard(t, s, "alice")

	third := newList(t, s, b.ID, "Done", 2)
	first := newList(t, s, b.ID, "Todo", 0)
	secondA := newList(t, s, b.ID, "Doing A", 1)
	secondB := newList(t, s, b.ID, "Doing B", 1)

	lists, err := s.ListsByBoard(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, lists, 4)

	var ids []string
	for _, l := range lists {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{first.ID, secondA.ID, secondB.ID, third.ID}, ids)
}

func TestCreateList_UnknownBoard(t *testing.T) {
	s := New()
	err := s.CreateList(context.Background(), &model.List{BoardID: "missing", Title: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateCard_MovesBetweenListIndices(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := newBoard(t, s, "alice")
	from := newList(t, s, b.ID, "Todo", 0)
	to := newList(t, s, b.ID, "Done", 1)

	card := &model.Card{ListID: from.ID, Title: "Fix bug"}
	require.NoError(t, s.CreateCard(ctx, card))

	card.ListID = to.ID
	require.NoError(t, s.UpdateCard(ctx, card))

	n, _ := s.CountCardsByList(ctx, from.ID)
	assert.Equal(t, 0, n)
	cards, err := s.CardsByList(ctx, to.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, card.ID, cards[0].ID)
}

func TestGetCard_SlicesAreNeverNil(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := newBoard(t, s, "alice")
	l := newList(t, s, b.ID, "Todo", 0)

	card := &model.Card{ListID: l.ID, Title: "Fix bug"}
	require.NoError(t, s.CreateCard(ctx, card))

	got, err := s.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Labels)
	assert.NotNil(t, got.Attachments)
	assert.NotNil(t, got.Checklist)
	assert.NotNil(t, got.Comments)
}

func TestCommentsByCard_CreationOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := newBoard(t, s, "alice")
	l := newList(t, s, b.ID, "Todo", 0)
	card := &model.Card{ListID: l.ID, Title: "Fix bug"}
	require.NoError(t, s.CreateCard(ctx, card))

	var want []string
	for _, text := range []string{"one", "two", "three"} {
		c := &model.Comment{CardID: card.ID, UserID: "alice", Text: text}
		require.NoError(t, s.CreateComment(ctx, c))
		want = append(want, c.ID)
	}

	got, err := s.CommentsByCard(ctx, card.ID)
	require.NoError(t, err)
	var ids []string
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, want, ids)
}

// =========================================================================
// REVOCATION
// =========================================================================

func TestRevocation_PurgeDropsOnlyExpired(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Revoke(ctx, "old", now.Add(-time.Minute)))
	require.NoError(t, s.Revoke(ctx, "live", now.Add(time.Hour)))

	n, err := s.PurgeRevoked(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	revoked, _ := s.IsRevoked(ctx, "old")
	assert.False(t, revoked)
	revoked, _ = s.IsRevoked(ctx, "live")
	assert.True(t, revoked)
}

func TestRevoke_IsIdempotentAndKeepsLaterExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Revoke(ctx, "fp", now.Add(time.Hour)))
	require.NoError(t, s.Revoke(ctx, "fp", now.Add(-time.Hour)))

	n, err := s.PurgeRevoked(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
