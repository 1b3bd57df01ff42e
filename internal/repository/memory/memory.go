// Package memory implements the repository interfaces with process-local maps.
//
// Every entity lives in a map keyed by id, and every parent → child relation
// has a secondary index (board → lists, list → cards, card → comments,
// user → boards) so child lookups don't scan the whole collection.
//
// All methods are safe for concurrent use. One RWMutex guards the whole
// store; operations are short map reads/writes, so a single lock is enough.
// Values go in and come out as copies: callers never share memory with the
// store.
package memory

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/kanban/internal/model"
	"github.com/sakif/kanban/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// set is a string set used for the parent → children indices.
type set map[string]struct{}

type Store struct {
	mu sync.RWMutex

	users      map[string]*model.User
	usernames  map[string]string // username → user id
	boards     map[string]*model.Board
	lists      map[string]*model.List
	cards      map[string]*model.Card
	comments   map[string]*model.Comment
	revoked    map[string]time.Time // token fingerprint → token expiry
	memberOf   map[string]set       // user id → board ids
	boardLists map[string]set       // board id → list ids
	listCards  map[string]set       // list id → card ids
	cardNotes  map[string]set       // card id → comment ids
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:      make(map[string]*model.User),
		usernames:  make(map[string]string),
		boards:     make(map[string]*model.Board),
		lists:      make(map[string]*model.List),
		cards:      make(map[string]*model.Card),
		comments:   make(map[string]*model.Comment),
		revoked:    make(map[string]time.Time),
		memberOf:   make(map[string]set),
		boardLists: make(map[string]set),
		listCards:  make(map[string]set),
		cardNotes:  make(map[string]set),
	}
}

// Close is a no-op; it lets the server treat every backend as an io.Closer.
func (s *Store) Close() error { return nil }

// newID returns a fresh xid. xids embed a timestamp and a counter, so ids
// sort in creation order and are never reused within a process.
func newID() string {
	return xid.New().String()
}

func addTo(idx map[string]set, parent, child string) {
	children, ok := idx[parent]
	if !ok {
		children = make(set)
		idx[parent] = children
	}
	children[child] = struct{}{}
}

func removeFrom(idx map[string]set, parent, child string) {
	children, ok := idx[parent]
	if !ok {
		return
	}
	delete(children, child)
	if len(children) == 0 {
		delete(idx, parent)
	}
}

// byPosition sorts by position, then id (creation order) as a tiebreak.
func byPosition(pos func(i int) int, id func(i int) string) func(i, j int) bool {
	return func(i, j int) bool {
		if pos(i) != pos(j) {
			return pos(i) < pos(j)
		}
		return id(i) < id(j)
	}
}
