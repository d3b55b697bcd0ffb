package feed

import "github.com/echofeed/backend/internal/model/feed"

// ToggleReaction applies a like/dislike toggle for one user on one post
// and returns a copy of the mutated post, or false when the id is unknown.
//
// Rules: pressing the same reaction again withdraws it; pressing the
// opposite reaction moves the user across in one step, so a user is never
// in both sets.
func (s *Service) ToggleReaction(id int64, user string, kind feed.ReactionKind) (feed.Post, bool) {
	p := s.FindByID(id)
	if p == nil {
		return feed.Post{}, false
	}

	primary, secondary := &p.LikedBy, &p.DislikedBy
	primaryCount, secondaryCount := &p.Likes, &p.Dislikes
	if kind == feed.ReactionDislike {
		primary, secondary = secondary, primary
		primaryCount, secondaryCount = secondaryCount, primaryCount
	}

	if idx := indexOf(*primary, user); idx >= 0 {
		*primary = append((*primary)[:idx], (*primary)[idx+1:]...)
		*primaryCount--
		return p.Clone(), true
	}

	*primary = append(*primary, user)
	*primaryCount++
	if idx := indexOf(*secondary, user); idx >= 0 {
		*secondary = append((*secondary)[:idx], (*secondary)[idx+1:]...)
		*secondaryCount--
	}
	return p.Clone(), true
}

func indexOf(set []string, user string) int {
	for i, v := range set {
		if v == user {
			return i
		}
	}
	return -1
}
