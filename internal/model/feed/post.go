package feed

import "time"

// Post is a single feed entry. Reaction counters always equal the
// cardinality of the matching sets, and a username never appears in both
// LikedBy and DislikedBy at the same time.
type Post struct {
	ID         int64    `json:"id"`
	Content    string   `json:"content"`
	Author     string   `json:"author"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	Likes      int      `json:"likes"`
	Dislikes   int      `json:"dislikes"`
	LikedBy    []string `json:"likedBy"`
	DislikedBy []string `json:"dislikedBy"`
}

// ReactionKind selects which side of the like/dislike toggle a mutation
// targets.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Valid reports whether the kind is one of the two known reactions.
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// Timestamp formats t the way the wire protocol expects (RFC 3339, UTC).
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Normalize repairs a post received from a client: reaction sets are never
// nil, a username holds at most one reaction, and the counters are
// recomputed from set cardinality. Clients cannot be trusted to keep the
// invariants themselves.
func (p *Post) Normalize() {
	p.LikedBy = dedupe(p.LikedBy)
	p.DislikedBy = dedupe(p.DislikedBy)
	// On conflicting input the like wins and the dislike is dropped.
	p.DislikedBy = subtract(p.DislikedBy, p.LikedBy)
	p.Likes = len(p.LikedBy)
	p.Dislikes = len(p.DislikedBy)
}

// Clone returns a deep copy so callers outside the relay loop can hold a
// post without sharing the reaction set backing arrays.
func (p Post) Clone() Post {
	out := p
	out.LikedBy = append([]string{}, p.LikedBy...)
	out.DislikedBy = append([]string{}, p.DislikedBy...)
	return out
}

// dedupe copies into a fresh slice so callers' backing arrays are never
// touched; the result is non-nil even for nil input.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// subtract removes from set every username present in other. The set is
// already a private copy by the time this runs, so it compacts in place.
func subtract(set, other []string) []string {
	if len(other) == 0 {
		return set
	}
	drop := make(map[string]struct{}, len(other))
	for _, v := range other {
		drop[v] = struct{}{}
	}
	out := set[:0]
	for _, v := range set {
		if _, ok := drop[v]; ok {
			continue
		}
		out = append(out, v)
	}
	return out
}
