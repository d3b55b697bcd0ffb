// Package feed holds the authoritative in-memory post collection and the
// reaction toggle rules. The relay loop is the only writer; the service
// carries no locking of its own (see internal/service/relay).
package feed

import (
	"time"

	"github.com/echofeed/backend/internal/model/feed"
)

// Service owns the ordered post collection, newest first.
type Service struct {
	posts  []*feed.Post
	lastID int64
	now    func() time.Time
}

// NewService bootstraps an empty feed. State is process-lifetime only.
func NewService() *Service {
	return &Service{now: time.Now}
}

// NewServiceWithClock is used by tests that need deterministic timestamps.
func NewServiceWithClock(now func() time.Time) *Service {
	return &Service{now: now}
}

// Insert prepends the post. A zero id gets a unix-millisecond id, bumped
// past the previous assignment so ids stay unique and orderable even when
// two posts land in the same millisecond.
func (s *Service) Insert(p feed.Post) feed.Post {
	p.Normalize()
	if p.ID == 0 {
		p.ID = s.nextID()
	}
	if p.ID > s.lastID {
		s.lastID = p.ID
	}
	if p.CreatedAt == "" {
		p.CreatedAt = feed.Timestamp(s.now())
	}
	stored := p.Clone()
	s.posts = append([]*feed.Post{&stored}, s.posts...)
	return stored.Clone()
}

// FindByID returns a pointer into the store, or nil when absent. Callers
// must not hold the pointer across relay events.
func (s *Service) FindByID(id int64) *feed.Post {
	for _, p := range s.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Remove deletes the post with the given id. Removing an absent id is a
// no-op and reports false.
func (s *Service) Remove(id int64) bool {
	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return true
		}
	}
	return false
}

// Edit replaces the content of the post and stamps updatedAt. Returns a
// copy of the updated post, or false when the id is unknown.
func (s *Service) Edit(id int64, content string) (feed.Post, bool) {
	p := s.FindByID(id)
	if p == nil {
		return feed.Post{}, false
	}
	p.Content = content
	p.UpdatedAt = feed.Timestamp(s.now())
	return p.Clone(), true
}

// All returns a copy of the collection in store order (newest first),
// suitable for the initPosts snapshot.
func (s *Service) All() []feed.Post {
	out := make([]feed.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p.Clone())
	}
	return out
}

// Len reports the number of posts currently held.
func (s *Service) Len() int {
	return len(s.posts)
}

func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	return id
}
