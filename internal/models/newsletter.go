package models

import "time"

type NewsletterSubscriber struct {
	ID           uint      `gorm:"column:id_newsletter;primaryKey" json:"id_newsletter"`
	Email        string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	SubscribedAt time.Time `gorm:"column:subscribed_at;autoCreateTime" json:"subscribed_at"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
}

func (NewsletterSubscriber) TableName() string { return "newsletters" }
