// Package relay coordinates every connected session. A single goroutine
// owns the feed service and applies mutations one at a time, which gives
// all clients one global order of changes without any locking.
package relay

import (
	"context"
	"errors"
	"log"

	"github.com/echofeed/backend/internal/model/feed"
	feedservice "github.com/echofeed/backend/internal/service/feed"
)

// ErrStopped is returned when the relay loop has already exited.
var ErrStopped = errors.New("relay stopped")

type submission struct {
	session *Session
	mut     feed.Mutation
}

// Relay fans mutation results out to all sessions, including the sender.
// Senders do not apply changes locally; convergence is broadcast-driven.
type Relay struct {
	feed *feedservice.Service
	log  *log.Logger

	join      chan *Session
	leave     chan *Session
	inbox     chan submission
	snapshots chan chan []feed.Post
	stopped   chan struct{}

	sessions map[*Session]struct{}
}

// New wires a relay around the given feed service. The relay becomes the
// sole owner of the service once Run starts.
func New(svc *feedservice.Service, logger *log.Logger) *Relay {
	return &Relay{
		feed:      svc,
		log:       logger,
		join:      make(chan *Session),
		leave:     make(chan *Session),
		inbox:     make(chan submission, 64),
		snapshots: make(chan chan []feed.Post),
		stopped:   make(chan struct{}),
		sessions:  make(map[*Session]struct{}),
	}
}

// Run processes joins, leaves and mutations until ctx is cancelled. Each
// event is handled to completion before the next is dequeued.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.stopped)
	for {
		select {
		case <-ctx.Done():
			for s := range r.sessions {
				delete(r.sessions, s)
				close(s.out)
			}
			return

		case s := <-r.join:
			r.sessions[s] = struct{}{}
			r.sendSnapshot(s)
			r.log.Printf("[relay] session joined id=%s total=%d", s.ID, len(r.sessions))

		case s := <-r.leave:
			if _, ok := r.sessions[s]; ok {
				delete(r.sessions, s)
				close(s.out)
			}
			r.log.Printf("[relay] session left id=%s total=%d", s.ID, len(r.sessions))

		case sub := <-r.inbox:
			r.apply(sub)

		case reply := <-r.snapshots:
			reply <- r.feed.All()
		}
	}
}

// Join registers the session and triggers its initPosts snapshot.
func (r *Relay) Join(ctx context.Context, s *Session) error {
	select {
	case r.join <- s:
		return nil
	case <-r.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave releases the session; its Out channel is closed by the relay, or
// by the relay's own shutdown path when Run has already returned.
func (r *Relay) Leave(s *Session) {
	select {
	case r.leave <- s:
	case <-r.stopped:
	}
}

// Submit queues a mutation for serialized application.
func (r *Relay) Submit(ctx context.Context, s *Session, mut feed.Mutation) error {
	select {
	case r.inbox <- submission{session: s, mut: mut}:
		return nil
	case <-r.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current post collection without letting
// the caller touch the store directly.
func (r *Relay) Snapshot(ctx context.Context) ([]feed.Post, error) {
	reply := make(chan []feed.Post, 1)
	select {
	case r.snapshots <- reply:
	case <-r.stopped:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case posts := <-reply:
		return posts, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// apply runs one mutation against the store and broadcasts the result.
// Mutations naming an unknown post are dropped without a broadcast.
func (r *Relay) apply(sub submission) {
	from := "server"
	if sub.session != nil {
		from = sub.session.ID
	}

	switch m := sub.mut.(type) {
	case feed.CreatePost:
		stored := r.feed.Insert(m.Post)
		r.broadcast(feed.EventNewPost, stored)

	case feed.ToggleReaction:
		post, ok := r.feed.ToggleReaction(m.PostID, m.User, m.Kind)
		if !ok {
			r.log.Printf("[relay] %s from %s: unknown post id=%d, ignored", feed.EventLikePost, from, m.PostID)
			return
		}
		r.broadcast(feed.EventUpdatePost, post)

	case feed.EditPost:
		post, ok := r.feed.Edit(m.PostID, m.Content)
		if !ok {
			r.log.Printf("[relay] %s from %s: unknown post id=%d, ignored", feed.EventEditPost, from, m.PostID)
			return
		}
		r.broadcast(feed.EventUpdatePost, post)

	case feed.DeletePost:
		if !r.feed.Remove(m.PostID) {
			r.log.Printf("[relay] %s from %s: unknown post id=%d, ignored", feed.EventDeletePost, from, m.PostID)
			return
		}
		r.broadcast(feed.EventDeletePost, m.PostID)
	}
}

func (r *Relay) sendSnapshot(s *Session) {
	frame, err := feed.EncodeEvent(feed.EventInitPosts, r.feed.All())
	if err != nil {
		r.log.Printf("[relay] encode %s: %v", feed.EventInitPosts, err)
		return
	}
	r.deliver(s, frame)
}

func (r *Relay) broadcast(event string, data any) {
	frame, err := feed.EncodeEvent(event, data)
	if err != nil {
		r.log.Printf("[relay] encode %s: %v", event, err)
		return
	}
	for s := range r.sessions {
		r.deliver(s, frame)
	}
}

// deliver never blocks the loop: a session whose queue is full loses the
// frame and will converge again on its next connect.
func (r *Relay) deliver(s *Session, frame []byte) {
	select {
	case s.out <- frame:
	default:
		r.log.Printf("[relay] session %s queue full, dropping frame", s.ID)
	}
}
