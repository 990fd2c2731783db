package models

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type Review struct {
	ID            uint         `gorm:"column:id_review;primaryKey" json:"id_review"`
	ProductID     uint         `gorm:"column:id_produit;index;not null" json:"id_produit"`
	Product       *Product     `gorm:"foreignKey:ProductID" json:"-"`
	CustomerName  string       `gorm:"column:customer_name;size:100;not null" json:"customer_name"`
	CustomerEmail string       `gorm:"column:customer_email;size:255;not null" json:"customer_email"`
	Rating        int          `gorm:"column:rating;not null" json:"rating"`
	Title         string       `gorm:"column:title;size:255" json:"title"`
	Comment       string       `gorm:"column:comment;type:text" json:"comment"`
	ReviewDate    time.Time    `gorm:"column:review_date;autoCreateTime" json:"review_date"`
	Status        ReviewStatus `gorm:"column:status;size:20;default:pending" json:"status"`
	Helpful       int          `gorm:"column:helpful;default:0" json:"helpful"`
	Verified      bool         `gorm:"column:verified;default:false" json:"verified"`
}

func (Review) TableName() string { return "reviews" }
