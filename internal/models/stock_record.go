package models

import "time"

// StockRecord: une ligne de stock mensuelle par produit. Date = premier jour du
// mois. L'index unique (id_produit, date) garantit une seule ligne par mois et
// par produit; la création paresseuse se fait au premier mouvement du mois.
//
// Invariant maintenu par toutes les mutations: ValeurStock == StockActuel * PrixUnitaire.
type StockRecord struct {
	ID              uint      `gorm:"column:id_stock;primaryKey" json:"id_stock"`
	Date            time.Time `gorm:"column:date;not null;uniqueIndex:idx_stock_produit_mois" json:"date"`
	ProductID       uint      `gorm:"column:id_produit;not null;uniqueIndex:idx_stock_produit_mois" json:"id_produit"`
	Product         *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	OpeningQuantity int       `gorm:"column:quantite_ouverture_mois;default:0" json:"quantite_ouverture_mois"`
	SoldQuantity    int       `gorm:"column:quantite_vendu_mois;default:0" json:"quantite_vendu_mois"`
	CurrentQuantity int       `gorm:"column:stock_actuel;default:0" json:"stock_actuel"`
	SuppliedQty     int       `gorm:"column:quantite_approvisionner;default:0" json:"quantite_approvisionner"`
	StockValue      float64   `gorm:"column:valeur_stock;default:0" json:"valeur_stock"`
	UnitPrice       float64   `gorm:"column:prix_unitaire" json:"prix_unitaire"`
}

func (StockRecord) TableName() string { return "stock_records" }
