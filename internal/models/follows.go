package models

import "time"

// Follows is a directed edge from follower to followed user.
// The composite primary key keeps one edge per ordered pair.
type Follows struct {
	FollowerID  string    `gorm:"primaryKey;size:36" json:"followerId"`
	Follower    *User     `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"follower,omitempty"`
	FollowingID string    `gorm:"primaryKey;size:36;index" json:"followingId"`
	Following   *User     `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"following,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Follows) TableName() string {
	return "follows"
}
