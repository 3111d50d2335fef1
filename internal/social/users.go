package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"socialhub/internal/auth"
	"socialhub/internal/models"
)

const maxSuggestions = 5

// SyncUser returns the local row for identity, creating it the first time
// the subject is seen.
func (s *Service) SyncUser(ctx context.Context, identity auth.Identity) (user models.User, err error) {
	ctx, span := s.start(ctx, "SyncUser")
	defer end(span, &err)

	if !identity.Authenticated() {
		return models.User{}, ErrUnauthenticated
	}

	db := s.db.WithContext(ctx)
	err = db.Where("external_id = ?", identity.Subject).Take(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return models.User{}, fmt.Errorf("%w: email is required", ErrInvalidProfile)
	}

	user = models.User{
		ExternalID: identity.Subject,
		Name:       strings.TrimSpace(identity.FirstName + " " + identity.LastName),
		Username:   usernameFor(identity),
		Email:      email,
		Image:      identity.ImageURL,
	}
	err = db.Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent sync created the row first
		var existing models.User
		if lookupErr := db.Where("external_id = ?", identity.Subject).Take(&existing).Error; lookupErr == nil {
			return existing, nil
		}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user synced", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func usernameFor(identity auth.Identity) string {
	if u := strings.TrimSpace(identity.Username); u != "" {
		return u
	}
	local, _, _ := strings.Cut(strings.TrimSpace(identity.Email), "@")
	return local
}

// GetUserByExternalID returns the user for an identity-provider subject
// together with its counts.
func (s *Service) GetUserByExternalID(ctx context.Context, externalID string) (result UserWithCounts, err error) {
	ctx, span := s.start(ctx, "GetUserByExternalID")
	defer end(span, &err)

	var user models.User
	err = s.db.WithContext(ctx).Where("external_id = ?", externalID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserWithCounts{}, ErrUserNotFound
	}
	if err != nil {
		return UserWithCounts{}, fmt.Errorf("failed to look up user: %w", err)
	}

	counts, err := s.counts(ctx, user.ID)
	if err != nil {
		return UserWithCounts{}, err
	}
	return UserWithCounts{User: user, Counts: counts}, nil
}

func (s *Service) counts(ctx context.Context, userID string) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Follows{}).Where("following_id = ?", userID).Count(&c.Followers).Error; err != nil {
		return Counts{}, fmt.Errorf("failed to count followers: %w", err)
	}
	if err := db.Model(&models.Follows{}).Where("follower_id = ?", userID).Count(&c.Following).Error; err != nil {
		return Counts{}, fmt.Errorf("failed to count following: %w", err)
	}
	if err := db.Model(&models.Post{}).Where("author_id = ?", userID).Count(&c.Posts).Error; err != nil {
		return Counts{}, fmt.Errorf("failed to count posts: %w", err)
	}
	return c, nil
}

type suggestionRow struct {
	ID        string
	Name      string
	Username  string
	Image     string
	Followers int64
}

// RandomUsers suggests up to five users the viewer does not follow yet.
// Lookup failures are logged and yield an empty list.
func (s *Service) RandomUsers(ctx context.Context, identity auth.Identity, limit int) (users []UserSummary, err error) {
	ctx, span := s.start(ctx, "RandomUsers")
	defer end(span, &err)

	users = []UserSummary{}
	viewerID, err := s.CurrentUserID(ctx, identity)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			s.logger.Warn("failed to resolve viewer for suggestions", zap.Error(err))
		}
		return users, nil
	}
	if limit <= 0 || limit > maxSuggestions {
		limit = maxSuggestions
	}

	db := s.db.WithContext(ctx)
	followed := db.Model(&models.Follows{}).Select("following_id").Where("follower_id = ?", viewerID)

	var rows []suggestionRow
	err = db.Model(&models.User{}).
		Select("users.id, users.name, users.username, users.image, (SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id) AS followers").
		Where("users.id <> ?", viewerID).
		Where("users.id NOT IN (?)", followed).
		Order("RANDOM()").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		s.logger.Error("failed to load suggestions", zap.Error(err))
		return users, nil
	}

	for _, r := range rows {
		followers := r.Followers
		users = append(users, UserSummary{ID: r.ID, Name: r.Name, Username: r.Username, Image: r.Image, Followers: &followers})
	}
	return users, nil
}

// ToggleFollow removes the viewer's follow edge to targetID if it exists,
// otherwise creates it together with a FOLLOW notification. It reports
// whether the viewer follows the target afterwards.
func (s *Service) ToggleFollow(ctx context.Context, identity auth.Identity, targetID string) (following bool, err error) {
	ctx, span := s.start(ctx, "ToggleFollow", attribute.String("target_id", targetID))
	defer end(span, &err)

	viewerID, err := s.CurrentUserID(ctx, identity)
	if err != nil {
		return false, err
	}
	if viewerID == targetID {
		return false, ErrSelfFollow
	}

	db := s.db.WithContext(ctx)
	var exists int64
	if err := db.Model(&models.User{}).Where("id = ?", targetID).Count(&exists).Error; err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	if exists == 0 {
		return false, ErrUserNotFound
	}

	res := db.Where("follower_id = ? AND following_id = ?", viewerID, targetID).Delete(&models.Follows{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to unfollow: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Follows{FollowerID: viewerID, FollowingID: targetID}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Notification{
			UserID:    targetID,
			CreatorID: viewerID,
			Type:      models.NotificationFollow,
		}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to follow: %w", err)
	}
	return true, nil
}

// IsFollowing reports whether the viewer follows targetID. Anonymous
// viewers follow nobody.
func (s *Service) IsFollowing(ctx context.Context, identity auth.Identity, targetID string) (bool, error) {
	viewerID, err := s.CurrentUserID(ctx, identity)
	if errors.Is(err, ErrUnauthenticated) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var n int64
	err = s.db.WithContext(ctx).Model(&models.Follows{}).
		Where("follower_id = ? AND following_id = ?", viewerID, targetID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return n > 0, nil
}
