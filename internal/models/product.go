package models

import "time"

// Product: article mis en vente par un vendeur. La quantité en main (quantite)
// est la source de vérité, décrémentée par les ventes et incrémentée par les
// approvisionnements.
type Product struct {
	ID           uint      `gorm:"column:id_produit;primaryKey" json:"id_produit"`
	UserID       uint      `gorm:"column:id_user;index;not null" json:"id_user"`
	User         *User     `gorm:"foreignKey:UserID" json:"-"`
	Name         string    `gorm:"column:nom_produit;size:255;not null" json:"nom_produit"`
	CreatorName  string    `gorm:"column:nom_createur;size:100" json:"nom_createur"`
	Category     string    `gorm:"column:categorie;size:50;not null" json:"categorie"`
	Price        float64   `gorm:"column:prix;not null" json:"prix"`
	Quantity     int       `gorm:"column:quantite;not null;default:0" json:"quantite"`
	Photo        string    `gorm:"column:photo;type:text" json:"photo"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	DateCreation time.Time `gorm:"column:date_creation;autoCreateTime" json:"date_creation"`
}

func (Product) TableName() string { return "products" }
