package models

import "time"

type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SalePending   SaleStatus = "pending"
	SaleRefunded  SaleStatus = "refunded"
)

// Sale: vente conclue. Le prix unitaire est un instantané du prix du produit au
// moment de la vente; les changements de prix ultérieurs ne touchent jamais les
// ventes passées.
type Sale struct {
	ID            uint       `gorm:"column:id_sale;primaryKey" json:"id_sale"`
	OrderID       string     `gorm:"column:order_id;size:50;uniqueIndex;not null" json:"order_id"`
	ProductID     uint       `gorm:"column:id_produit;index" json:"id_produit"`
	SellerID      uint       `gorm:"column:id_seller;index" json:"id_seller"`
	BuyerID       uint       `gorm:"column:id_buyer;index" json:"id_buyer"`
	BuyerName     string     `gorm:"column:buyer_name;size:100;not null" json:"buyer_name"`
	BuyerEmail    string     `gorm:"column:buyer_email;size:255;not null" json:"buyer_email"`
	Quantity      int        `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice     float64    `gorm:"column:unit_price;not null" json:"unit_price"`
	TotalAmount   float64    `gorm:"column:total_amount;not null" json:"total_amount"`
	SaleDate      time.Time  `gorm:"column:sale_date;autoCreateTime" json:"sale_date"`
	Status        SaleStatus `gorm:"column:status;size:20;default:pending" json:"status"`
	PaymentMethod string     `gorm:"column:payment_method;size:50;not null" json:"payment_method"`
}

func (Sale) TableName() string { return "sales" }
