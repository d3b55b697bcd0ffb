package feed

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire event names shared with the browser client.
const (
	EventInitPosts  = "initPosts"
	EventNewPost    = "newPost"
	EventLikePost   = "likePost"
	EventEditPost   = "editPost"
	EventUpdatePost = "updatePost"
	EventDeletePost = "deletePost"
)

// Envelope is the single JSON frame exchanged over the websocket in both
// directions: an event name plus an event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("malformed event payload")
)

// Mutation is the sealed set of state changes a client may request. The
// relay switches over the concrete types exhaustively, which the string
// event tags alone cannot guarantee.
type Mutation interface {
	isMutation()
}

// CreatePost requests that a new post be prepended to the feed.
type CreatePost struct {
	Post Post
}

// ToggleReaction requests a like/dislike toggle for one user on one post.
type ToggleReaction struct {
	PostID int64        `json:"postId"`
	User   string       `json:"user"`
	Kind   ReactionKind `json:"type"`
}

// EditPost replaces the content of an existing post.
type EditPost struct {
	PostID  int64  `json:"postId"`
	Content string `json:"content"`
}

// DeletePost removes a post from the feed.
type DeletePost struct {
	PostID int64
}

func (CreatePost) isMutation()     {}
func (ToggleReaction) isMutation() {}
func (EditPost) isMutation()       {}
func (DeletePost) isMutation()     {}

// DecodeMutation parses a raw inbound frame into a typed Mutation.
// Unknown events and payloads that do not unmarshal are reported as
// errors; the relay drops them without surfacing anything to clients.
func DecodeMutation(raw []byte) (Mutation, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch env.Event {
	case EventNewPost:
		var p Post
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		p.Normalize()
		return CreatePost{Post: p}, nil

	case EventLikePost:
		var m ToggleReaction
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if m.User == "" || !m.Kind.Valid() {
			return nil, fmt.Errorf("%w: user=%q type=%q", ErrBadPayload, m.User, m.Kind)
		}
		return m, nil

	case EventEditPost:
		var m EditPost
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return m, nil

	case EventDeletePost:
		id, err := decodeDeleteTarget(env.Data)
		if err != nil {
			return nil, err
		}
		return DeletePost{PostID: id}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// decodeDeleteTarget accepts either a bare post id or {"postId": n}; the
// original client sends the bare form.
func decodeDeleteTarget(data json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		return id, nil
	}
	var wrapped struct {
		PostID int64 `json:"postId"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return wrapped.PostID, nil
}

// EncodeEvent builds an outbound frame for broadcast or snapshot delivery.
func EncodeEvent(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: payload})
}
