package models

import "time"

// Invite 一次性注册邀请。DisplayName 会成为持有人显示名（借出记录上的名字）。
type Invite struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"index;size:255;not null" json:"email"`
	DisplayName string     `gorm:"size:255" json:"displayName"`
	Token       string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expiresAt"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
	CreatedBy   string     `gorm:"size:255" json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Invite) TableName() string { return "lsb_invites" }
