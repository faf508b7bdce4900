package model

import "time"

type SubscriptionTier string

const (
	TierBase SubscriptionTier = "base"
	TierPro  SubscriptionTier = "pro"
)

type User struct {
	BaseModel
	Username       string           `gorm:"size:50;unique;not null" json:"username"`
	Email          string           `gorm:"size:100;unique;not null" json:"email"`
	Password       string           `gorm:"size:100;not null" json:"-"`
	FullName       string           `gorm:"size:100" json:"fullName"`
	IsActive       bool             `gorm:"default:true" json:"isActive"`
	IsSuperuser    bool             `gorm:"default:false" json:"-"`
	Tier           SubscriptionTier `gorm:"size:20;default:'base';not null" json:"subscriptionTier"`
	AIQueriesToday int              `gorm:"default:0;not null" json:"aiQueriesToday"`
	// Date-only semantics: the counter resets lazily whenever this
	// differs from the current UTC day.
	LastAIQueryDate *time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
