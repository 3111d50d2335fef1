package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the local row for an identity-provider account
type User struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ExternalID string    `gorm:"uniqueIndex;size:191;not null" json:"-"`
	Email      string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Username   string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Name       string    `gorm:"size:128" json:"name"`
	Bio        string    `gorm:"size:280" json:"bio"`
	Image      string    `json:"image"`
	Location   string    `gorm:"size:100" json:"location"`
	Website    string    `gorm:"size:200" json:"website"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}
