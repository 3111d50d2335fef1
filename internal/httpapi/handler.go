// Package httpapi exposes the social operations as JSON endpoints.
package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"socialhub/internal/auth"
	"socialhub/internal/social"
)

type Handler struct {
	svc    Service
	ping   Pinger
	logger *zap.Logger
}

func NewHandler(svc Service, ping Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, ping: ping, logger: logger.Named("http")}
}

// Routes returns the API mux wrapped with session, recovery and access log
// middleware.
func (h *Handler) Routes(verifier *auth.Verifier) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users/sync", h.syncUser)
	mux.HandleFunc("GET /api/users/suggestions", h.suggestions)
	mux.HandleFunc("POST /api/users/{id}/follow", h.toggleFollow)
	mux.HandleFunc("GET /api/users/{id}/follow", h.isFollowing)

	mux.HandleFunc("GET /api/posts", h.listPosts)
	mux.HandleFunc("POST /api/posts", h.createPost)
	mux.HandleFunc("DELETE /api/posts/{id}", h.deletePost)
	mux.HandleFunc("POST /api/posts/{id}/like", h.toggleLike)
	mux.HandleFunc("POST /api/posts/{id}/comments", h.addComment)

	mux.HandleFunc("GET /api/profiles/{username}", h.profile)
	mux.HandleFunc("GET /api/profiles/{username}/posts", h.userPosts)
	mux.HandleFunc("GET /api/profiles/{username}/likes", h.likedPosts)
	mux.HandleFunc("PATCH /api/profile", h.updateProfile)

	mux.HandleFunc("GET /api/notifications", h.notifications)
	mux.HandleFunc("POST /api/notifications/read", h.markRead)

	mux.HandleFunc("GET /healthz", h.health)

	var handler http.Handler = mux
	if verifier != nil {
		handler = auth.Middleware(verifier, h.logger)(handler)
	}
	return h.accessLog(h.recoverer(handler))
}

func (h *Handler) syncUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.SyncUser(r.Context(), viewer(r))
	if err != nil {
		h.fail(w, r, "sync user", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"user": user})
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		h.fail(w, r, "get suggestions", err)
		return
	}
	users, err := h.svc.RandomUsers(r.Context(), viewer(r), limit)
	if err != nil {
		h.fail(w, r, "get suggestions", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"users": users})
}

func (h *Handler) toggleFollow(w http.ResponseWriter, r *http.Request) {
	following, err := h.svc.ToggleFollow(r.Context(), viewer(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "toggle follow", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"following": following})
}

func (h *Handler) isFollowing(w http.ResponseWriter, r *http.Request) {
	following, err := h.svc.IsFollowing(r.Context(), viewer(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "check follow status", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"following": following})
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", social.DefaultPageSize)
	if err != nil {
		h.fail(w, r, "get posts", err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		h.fail(w, r, "get posts", err)
		return
	}

	posts, err := h.svc.ListPosts(r.Context(), social.Page{Limit: limit, Offset: offset})
	if err != nil {
		h.fail(w, r, "get posts", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"posts": posts})
}

type createPostRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, "create post", err)
		return
	}

	post, err := h.svc.CreatePost(r.Context(), viewer(r), req.Content, req.Image)
	if err != nil {
		h.fail(w, r, "create post", err)
		return
	}
	h.ok(w, http.StatusCreated, payload{"post": post})
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePost(r.Context(), viewer(r), r.PathValue("id")); err != nil {
		h.fail(w, r, "delete post", err)
		return
	}
	h.ok(w, http.StatusOK, nil)
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	liked, err := h.svc.ToggleLike(r.Context(), viewer(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "toggle like", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"liked": liked})
}

type addCommentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, "add comment", err)
		return
	}

	comment, err := h.svc.AddComment(r.Context(), viewer(r), r.PathValue("id"), req.Content)
	if err != nil {
		h.fail(w, r, "add comment", err)
		return
	}
	h.ok(w, http.StatusCreated, payload{"comment": comment})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.ProfileByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		h.fail(w, r, "get profile", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"profile": profile})
}

func (h *Handler) userPosts(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.ProfileByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		h.fail(w, r, "get user posts", err)
		return
	}
	posts, err := h.svc.UserPosts(r.Context(), profile.ID)
	if err != nil {
		h.fail(w, r, "get user posts", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"posts": posts})
}

func (h *Handler) likedPosts(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.ProfileByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		h.fail(w, r, "get liked posts", err)
		return
	}
	posts, err := h.svc.LikedPosts(r.Context(), profile.ID)
	if err != nil {
		h.fail(w, r, "get liked posts", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"posts": posts})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in social.ProfileInput
	if err := decode(w, r, &in); err != nil {
		h.fail(w, r, "update profile", err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), viewer(r), in)
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"user": user})
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListNotifications(r.Context(), viewer(r))
	if err != nil {
		h.fail(w, r, "get notifications", err)
		return
	}
	unread, err := h.svc.UnreadCount(r.Context(), viewer(r))
	if err != nil {
		h.fail(w, r, "get notifications", err)
		return
	}
	h.ok(w, http.StatusOK, payload{"notifications": list, "unread": unread})
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, "mark notifications read", err)
		return
	}

	if err := h.svc.MarkNotificationsRead(r.Context(), viewer(r), req.IDs); err != nil {
		h.fail(w, r, "mark notifications read", err)
		return
	}
	h.ok(w, http.StatusOK, nil)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, payload{"success": false, "message": "database unavailable"})
			return
		}
	}
	h.ok(w, http.StatusOK, payload{"status": "ok"})
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}
