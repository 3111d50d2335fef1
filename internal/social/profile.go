package social

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"socialhub/internal/auth"
	"socialhub/internal/models"
)

const (
	maxNameLength     = 64
	maxBioLength      = 280
	maxLocationLength = 100
	maxWebsiteLength  = 200
)

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Location string `json:"location"`
	Website  string `json:"website"`
}

// Normalize trims every field and checks lengths and the website URL.
func (in ProfileInput) Normalize() (ProfileInput, error) {
	out := ProfileInput{
		Name:     strings.TrimSpace(in.Name),
		Bio:      strings.TrimSpace(in.Bio),
		Location: strings.TrimSpace(in.Location),
		Website:  strings.TrimSpace(in.Website),
	}

	limits := []struct {
		field string
		value string
		max   int
	}{
		{"name", out.Name, maxNameLength},
		{"bio", out.Bio, maxBioLength},
		{"location", out.Location, maxLocationLength},
		{"website", out.Website, maxWebsiteLength},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return ProfileInput{}, fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidProfile, l.field, l.max)
		}
	}

	if out.Website != "" {
		u, err := url.Parse(out.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ProfileInput{}, fmt.Errorf("%w: website must be an http or https URL", ErrInvalidProfile)
		}
	}
	return out, nil
}

func (s *Service) userByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// ProfileByUsername returns the public profile for username.
func (s *Service) ProfileByUsername(ctx context.Context, username string) (profile Profile, err error) {
	ctx, span := s.start(ctx, "ProfileByUsername")
	defer end(span, &err)

	user, err := s.userByUsername(ctx, username)
	if err != nil {
		return Profile{}, err
	}
	counts, err := s.counts(ctx, user.ID)
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Bio:       user.Bio,
		Image:     user.Image,
		Location:  user.Location,
		Website:   user.Website,
		CreatedAt: user.CreatedAt,
		Counts:    counts,
	}, nil
}

// UserPosts returns the posts written by userID, newest first.
func (s *Service) UserPosts(ctx context.Context, userID string) (views []PostView, err error) {
	ctx, span := s.start(ctx, "UserPosts")
	defer end(span, &err)

	var posts []models.Post
	if err := feed(s.db.WithContext(ctx)).Where("author_id = ?", userID).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list user posts: %w", err)
	}
	return postViews(posts), nil
}

// LikedPosts returns the posts liked by userID, newest first.
func (s *Service) LikedPosts(ctx context.Context, userID string) (views []PostView, err error) {
	ctx, span := s.start(ctx, "LikedPosts")
	defer end(span, &err)

	db := s.db.WithContext(ctx)
	liked := db.Model(&models.Like{}).Select("post_id").Where("user_id = ?", userID)

	var posts []models.Post
	if err := feed(db).Where("id IN (?)", liked).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list liked posts: %w", err)
	}
	return postViews(posts), nil
}

// UpdateProfile replaces the viewer's editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, identity auth.Identity, in ProfileInput) (user models.User, err error) {
	ctx, span := s.start(ctx, "UpdateProfile")
	defer end(span, &err)

	if !identity.Authenticated() {
		return models.User{}, ErrUnauthenticated
	}
	in, err = in.Normalize()
	if err != nil {
		return models.User{}, err
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.User{}).
		Where("external_id = ?", identity.Subject).
		Select("name", "bio", "location", "website").
		Updates(models.User{Name: in.Name, Bio: in.Bio, Location: in.Location, Website: in.Website})
	if res.Error != nil {
		return models.User{}, fmt.Errorf("failed to update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.User{}, ErrUserNotFound
	}

	if err := db.Where("external_id = ?", identity.Subject).Take(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("failed to reload profile: %w", err)
	}
	return user, nil
}
