package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	feedmodel "github.com/echofeed/backend/internal/model/feed"
	"github.com/echofeed/backend/internal/service/relay"
	userservice "github.com/echofeed/backend/internal/service/user"
	"github.com/echofeed/backend/pkg/utils"
)

// Handler serves the moderation dashboard API. Post deletions go through
// the relay so every connected client sees them, same as a client delete.
type Handler struct {
	users *userservice.Service
	relay *relay.Relay
}

// New creates the admin handler.
func New(users *userservice.Service, r *relay.Relay) *Handler {
	return &Handler{users: users, relay: r}
}

// RegisterRoutes registers the admin routes. Callers are expected to have
// wrapped them in the admin auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/stats", h.handleStats)
	r.Get("/admin/users", h.handleListUsers)
	r.Delete("/admin/posts/{postID}", h.handleDeletePost)
}

type statsResponse struct {
	TotalUsers int `json:"totalUsers"`
	TotalPosts int `json:"totalPosts"`
	TodayPosts int `json:"todayPosts"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	totalUsers, err := h.users.Count(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to count users")
		return
	}

	posts, err := h.relay.Snapshot(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "feed unavailable")
		return
	}

	today := time.Now().UTC().Format("2006-01-02")
	todayPosts := 0
	for _, p := range posts {
		if created, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
			if created.UTC().Format("2006-01-02") == today {
				todayPosts++
			}
		}
	}

	utils.RespondJSON(w, http.StatusOK, statsResponse{
		TotalUsers: totalUsers,
		TotalPosts: len(posts),
		TodayPosts: todayPosts,
	})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	utils.RespondJSON(w, http.StatusOK, users)
}

func (h *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := h.relay.Submit(r.Context(), nil, feedmodel.DeletePost{PostID: id}); err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "feed unavailable")
		return
	}

	// Applied asynchronously; an unknown id is silently a no-op.
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
