package model

import "time"

// Role is a member's privilege level on a board.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// rank orders roles from least to most privileged. Unknown roles rank 0.
var rank = map[Role]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// AtLeast reports whether r grants at least the privileges of min.
//
//	RoleAdmin.AtLeast(RoleMember) → true
//	RoleAdmin.AtLeast(RoleOwner)  → false
func (r Role) AtLeast(min Role) bool {
	return rank[r] >= rank[min] && rank[r] > 0
}

// Member is one (user, role) entry in a board's member list.
type Member struct {
	UserID string `json:"userId" db:"user_id"`
	Role   Role   `json:"role"   db:"role"`
}

// Board is the root of an authorization scope. Everything below it (lists,
// cards, comments) is visible only to users present in Members.
//
// Exactly one member holds RoleOwner: the user who created the board.
type Board struct {
	ID         string    `json:"id"         db:"id"`
	Name       string    `json:"name"       db:"name"`
	OwnerID    string    `json:"ownerId"    db:"owner_id"`
	Background string    `json:"background,omitempty" db:"background"`
	IsArchived bool      `json:"isArchived" db:"is_archived"`
	IsFavorite bool      `json:"isFavorite" db:"is_favorite"`
	IsTemplate bool      `json:"isTemplate" db:"is_template"`
	Members    []Member  `json:"members"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}

// MemberRole returns the role userID holds on the board, if any.
func (b *Board) MemberRole(userID string) (Role, bool) {
	for _, m := range b.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// BoardDetail is a board together with its lists and their cards, as
// returned by GET /boards/{boardId}. Embedding Board flattens its fields
// into the JSON object.
type BoardDetail struct {
	Board
	Lists []ListWithCards `json:"lists"`
}

// ListWithCards is a list plus its cards in position order.
type ListWithCards struct {
	List
	Cards []Card `json:"cards"`
}
