package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType identifies what triggered a notification
type NotificationType string

const (
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
	NotificationFollow  NotificationType = "FOLLOW"
)

// Notification is addressed to UserID and caused by CreatorID.
// PostID and CommentID are set depending on Type.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	UserID    string           `gorm:"size:36;not null;index:idx_notifications_user_created,priority:1" json:"userId"`
	User      *User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatorID string           `gorm:"size:36;not null;index" json:"creatorId"`
	Creator   *User            `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"creator,omitempty"`
	Type      NotificationType `gorm:"size:16;not null" json:"type"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	PostID    *string          `gorm:"size:36" json:"postId"`
	Post      *Post            `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	CommentID *string          `gorm:"size:36" json:"commentId"`
	Comment   *Comment         `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"comment,omitempty"`
	CreatedAt time.Time        `gorm:"index:idx_notifications_user_created,priority:2" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = NewID()
	}
	return nil
}
