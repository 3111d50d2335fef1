package httpapi

import (
	"context"

	"socialhub/internal/auth"
	"socialhub/internal/models"
	"socialhub/internal/social"
)

// Service is the set of operations the handlers call.
type Service interface {
	SyncUser(ctx context.Context, identity auth.Identity) (models.User, error)
	RandomUsers(ctx context.Context, identity auth.Identity, limit int) ([]social.UserSummary, error)
	ToggleFollow(ctx context.Context, identity auth.Identity, targetID string) (bool, error)
	IsFollowing(ctx context.Context, identity auth.Identity, targetID string) (bool, error)

	ListPosts(ctx context.Context, page social.Page) ([]social.PostView, error)
	CreatePost(ctx context.Context, identity auth.Identity, content, imageURL string) (models.Post, error)
	DeletePost(ctx context.Context, identity auth.Identity, postID string) error
	ToggleLike(ctx context.Context, identity auth.Identity, postID string) (bool, error)
	AddComment(ctx context.Context, identity auth.Identity, postID, content string) (models.Comment, error)

	ProfileByUsername(ctx context.Context, username string) (social.Profile, error)
	UserPosts(ctx context.Context, userID string) ([]social.PostView, error)
	LikedPosts(ctx context.Context, userID string) ([]social.PostView, error)
	UpdateProfile(ctx context.Context, identity auth.Identity, in social.ProfileInput) (models.User, error)

	ListNotifications(ctx context.Context, identity auth.Identity) ([]social.NotificationView, error)
	MarkNotificationsRead(ctx context.Context, identity auth.Identity, ids []string) error
	UnreadCount(ctx context.Context, identity auth.Identity) (int64, error)
}

// Pinger reports database health.
type Pinger func(ctx context.Context) error
