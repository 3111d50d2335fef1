package social

import "errors"

var (
	ErrUnauthenticated = errors.New("user not authenticated")
	ErrUserNotFound    = errors.New("user not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrForbidden       = errors.New("not allowed")
	ErrSelfFollow      = errors.New("you cannot follow yourself")
	ErrContentRequired = errors.New("content is required")
	ErrInvalidProfile  = errors.New("invalid profile")
)
