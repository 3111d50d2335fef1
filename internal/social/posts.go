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

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// CreatePost stores a post by the viewer. Either content or an image is
// required.
func (s *Service) CreatePost(ctx context.Context, identity auth.Identity, content, imageURL string) (post models.Post, err error) {
	ctx, span := s.start(ctx, "CreatePost")
	defer end(span, &err)

	authorID, err := s.CurrentUserID(ctx, identity)
	if err != nil {
		return models.Post{}, err
	}

	content = strings.TrimSpace(content)
	imageURL = strings.TrimSpace(imageURL)
	if content == "" && imageURL == "" {
		return models.Post{}, ErrContentRequired
	}

	post = models.Post{AuthorID: authorID, Content: content, Image: imageURL}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return models.Post{}, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.Debug("post created", zap.String("post_id", post.ID), zap.String("author_id", authorID))
	return post, nil
}

// feed preloads everything a PostView needs.
func feed(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Comments.Author").
		Preload("Likes").
		Order("created_at DESC").
		Order("id DESC")
}

func postViews(posts []models.Post) []PostView {
	views := make([]PostView, 0, len(posts))
	for i := range posts {
		views = append(views, postView(&posts[i]))
	}
	return views
}

// ListPosts returns the newest posts first.
func (s *Service) ListPosts(ctx context.Context, page Page) (views []PostView, err error) {
	ctx, span := s.start(ctx, "ListPosts")
	defer end(span, &err)

	page = page.normalize()
	span.SetAttributes(attribute.Int("limit", page.Limit), attribute.Int("offset", page.Offset))

	var posts []models.Post
	err = feed(s.db.WithContext(ctx)).Limit(page.Limit).Offset(page.Offset).Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return postViews(posts), nil
}

// ToggleLike removes the viewer's like on postID if present, otherwise
// likes the post and notifies its author. It reports whether the post is
// liked afterwards.
func (s *Service) ToggleLike(ctx context.Context, identity auth.Identity, postID string) (liked bool, err error) {
	ctx, span := s.start(ctx, "ToggleLike", attribute.String("post_id", postID))
	defer end(span, &err)

	viewerID, err := s.CurrentUserID(ctx, identity)
	if err != nil {
		return false, err
	}
	authorID, err := s.postAuthor(ctx, postID)
	if err != nil {
		return false, err
	}

	db := s.db.WithContext(ctx)
	res := db.Where("user_id = ? AND post_id = ?", viewerID, postID).Delete(&models.Like{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to unlike post: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Like{UserID: viewerID, PostID: postID}).Error; err != nil {
			return err
		}
		if authorID == viewerID {
			return nil
		}
		return tx.Create(&models.Notification{
			UserID:    authorID,
			CreatorID: viewerID,
			Type:      models.NotificationLike,
			PostID:    &postID,
		}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to like post: %w", err)
	}
	return true, nil
}

// AddComment stores a comment on postID and notifies the post author
// unless they wrote the comment.
func (s *Service) AddComment(ctx context.Context, identity auth.Identity, postID, content string) (comment models.Comment, err error) {
	ctx, span := s.start(ctx, "AddComment", attribute.String("post_id", postID))
	defer end(span, &err)

	viewerID, err := s.CurrentUserID(ctx, identity)
	if err != nil {
		return models.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, ErrContentRequired
	}
	authorID, err := s.postAuthor(ctx, postID)
	if err != nil {
		return models.Comment{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment = models.Comment{Content: content, PostID: postID, AuthorID: viewerID}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if authorID == viewerID {
			return nil
		}
		return tx.Create(&models.Notification{
			UserID:    authorID,
			CreatorID: viewerID,
			Type:      models.NotificationComment,
			PostID:    &postID,
			CommentID: &comment.ID,
		}).Error
	})
	if err != nil {
		return models.Comment{}, fmt.Errorf("failed to add comment: %w", err)
	}
	return comment, nil
}

// DeletePost removes a post owned by the viewer. Comments, likes and
// notifications referencing it are removed by the foreign keys.
func (s *Service) DeletePost(ctx context.Context, identity auth.Identity, postID string) (err error) {
	ctx, span := s.start(ctx, "DeletePost", attribute.String("post_id", postID))
	defer end(span, &err)

	viewerID, err := s.CurrentUserID(ctx, identity)
	if err != nil {
		return err
	}
	authorID, err := s.postAuthor(ctx, postID)
	if err != nil {
		return err
	}
	if authorID != viewerID {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).Where("id = ?", postID).Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	s.logger.Debug("post deleted", zap.String("post_id", postID))
	return nil
}
