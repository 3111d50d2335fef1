// Package social implements the user, post, engagement, follow,
// notification and profile operations on top of GORM.
package social

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"socialhub/internal/auth"
	"socialhub/internal/models"
)

const tracerName = "socialhub/internal/social"

// Service runs every operation against a single database handle.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	tracer trace.Tracer
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     db,
		logger: logger.Named("social"),
		tracer: otel.Tracer(tracerName),
	}
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "social."+op, trace.WithAttributes(attrs...))
}

func end(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}

// CurrentUserID resolves the local user ID for identity.
func (s *Service) CurrentUserID(ctx context.Context, identity auth.Identity) (string, error) {
	if !identity.Authenticated() {
		return "", ErrUnauthenticated
	}

	var user models.User
	err := s.db.WithContext(ctx).Select("id").Where("external_id = ?", identity.Subject).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	return user.ID, nil
}

func (s *Service) postAuthor(ctx context.Context, postID string) (string, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Select("id", "author_id").Where("id = ?", postID).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrPostNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up post: %w", err)
	}
	return post.AuthorID, nil
}
