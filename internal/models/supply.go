package models

import "time"

type SupplyStatus string

const (
	SupplyDelivered SupplyStatus = "delivered"
	SupplyPending   SupplyStatus = "pending"
)

// Supply: entrée de stock (réapprovisionnement). Créée toujours au statut
// "delivered": l'effet sur le catalogue et la ligne de stock est immédiat.
type Supply struct {
	ID           uint         `gorm:"column:id_supply;primaryKey" json:"id_supply"`
	ProductID    uint         `gorm:"column:id_produit;index;not null" json:"id_produit"`
	Product      *Product     `gorm:"foreignKey:ProductID" json:"-"`
	SupplierID   *uint        `gorm:"column:id_fournisseur;index" json:"id_fournisseur"`
	Supplier     *Supplier    `gorm:"foreignKey:SupplierID" json:"-"`
	UserID       uint         `gorm:"column:id_user;index" json:"id_user"`
	Quantity     int          `gorm:"column:quantite;not null" json:"quantite"`
	UnitPrice    float64      `gorm:"column:prix_unitaire;not null" json:"prix_unitaire"`
	TotalPrice   float64      `gorm:"column:prix_total;not null" json:"prix_total"`
	DeliveryDate time.Time    `gorm:"column:date_approvisionnement;not null" json:"date_approvisionnement"`
	Status       SupplyStatus `gorm:"column:statut;size:20;default:pending" json:"statut"`
	Notes        string       `gorm:"column:notes;type:text" json:"notes"`
}

func (Supply) TableName() string { return "supplies" }

type Supplier struct {
	ID      uint   `gorm:"column:id_fournisseur;primaryKey" json:"id_fournisseur"`
	Name    string `gorm:"column:nom_fournisseur;size:100;not null" json:"nom_fournisseur"`
	Email   string `gorm:"column:email;size:255" json:"email"`
	Phone   string `gorm:"column:telephone;size:20" json:"telephone"`
	Address string `gorm:"column:adresse;type:text" json:"adresse"`
}

func (Supplier) TableName() string { return "suppliers" }
