package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleSeller UserRole = "vendeur"
	RoleClient UserRole = "client"
)

type User struct {
	ID                       uint       `gorm:"primaryKey" json:"id"`
	FirstName                string     `gorm:"size:50;not null" json:"first_name"`
	LastName                 string     `gorm:"size:50;not null" json:"last_name"`
	Email                    string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash             string     `gorm:"size:255;not null" json:"-"`
	Role                     UserRole   `gorm:"size:20;not null" json:"role"`
	EmailVerified            bool       `gorm:"default:false" json:"email_verified"`
	VerificationToken        *string    `gorm:"size:255" json:"-"`
	VerificationTokenExpires *time.Time `json:"-"`
	IsBlocked                bool       `gorm:"default:false" json:"is_blocked"`
	CreatedAt                time.Time  `json:"created_at"`
}
