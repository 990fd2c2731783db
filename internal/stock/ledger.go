package stock

import (
	"time"

	"videgrenier-backend/internal/models"

	"gorm.io/gorm"
)

// MonthStart ramène une date au premier jour de son mois, à minuit UTC. Les
// dates du grand livre sont toutes normalisées en UTC: une même ligne doit
// être retrouvée à l'identique quel que soit le fuseau du serveur.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange retourne [premier jour du mois, premier jour du mois suivant).
// Les requêtes par intervalle semi-ouvert passent telles quelles sur Postgres
// comme sur SQLite, contrairement à EXTRACT(...).
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := MonthStart(t)
	return start, start.AddDate(0, 1, 0)
}

// RecordForMonth cherche la ligne de stock d'un produit pour le mois contenant
// t, sans la créer. gorm.ErrRecordNotFound si elle n'existe pas.
func RecordForMonth(tx *gorm.DB, productID uint, t time.Time) (*models.StockRecord, error) {
	start, end := MonthRange(t)

	var rec models.StockRecord
	err := tx.
		Where("id_produit = ? AND date >= ? AND date < ?", productID, start, end).
		Order("date DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CurrentMonthRecord retourne la ligne de stock du mois en cours pour le
// produit, en la créant au besoin. L'ouverture du mois reprend le stock actuel
// du dernier mois enregistré (report de solde); sans aucun historique, c'est la
// quantité en main du produit qui sert d'ouverture: la ligne créée se
// réconcilie ainsi toujours avec le catalogue au moment de sa création.
//
// Course à la création: deux premières écritures simultanées du mois peuvent
// toutes deux rater la lecture et tenter l'insertion. L'index unique
// (id_produit, date) rejette la seconde. L'insertion est encadrée d'un
// savepoint: sur Postgres la violation d'unicité avorte la transaction, et le
// retour au savepoint la rend réutilisable pour relire la ligne gagnante.
func CurrentMonthRecord(tx *gorm.DB, product *models.Product) (*models.StockRecord, error) {
	now := time.Now()

	if rec, err := RecordForMonth(tx, product.ID, now); err == nil {
		return rec, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	firstDay := MonthStart(now)

	opening := product.Quantity
	var previous models.StockRecord
	err := tx.
		Where("id_produit = ? AND date < ?", product.ID, firstDay).
		Order("date DESC").
		First(&previous).Error
	if err == nil {
		opening = previous.CurrentQuantity
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	rec := models.StockRecord{
		Date:            firstDay,
		ProductID:       product.ID,
		OpeningQuantity: opening,
		SoldQuantity:    0,
		CurrentQuantity: opening,
		SuppliedQty:     0,
		StockValue:      float64(opening) * product.Price,
		UnitPrice:       product.Price,
	}

	// Sur Postgres, la violation d'index unique avorte toute la transaction;
	// revenir au savepoint la laisse utilisable pour la relecture. Hors
	// transaction, l'insertion échoue sans autre effet.
	var createErr error
	if _, inTx := tx.Statement.ConnPool.(gorm.TxCommitter); inTx {
		const sp = "stock_month_insert"
		if err := tx.SavePoint(sp).Error; err != nil {
			return nil, err
		}
		if createErr = tx.Create(&rec).Error; createErr != nil {
			if err := tx.RollbackTo(sp).Error; err != nil {
				return nil, createErr
			}
		}
	} else {
		createErr = tx.Create(&rec).Error
	}

	if createErr != nil {
		// Insertion concurrente probable: la relecture tranche.
		if existing, readErr := RecordForMonth(tx, product.ID, now); readErr == nil {
			return existing, nil
		}
		return nil, createErr
	}

	return &rec, nil
}

// SeedRecord crée la ligne de stock initiale d'un produit neuf: ouverture et
// stock actuel à la quantité de départ, rien de vendu ni d'approvisionné.
func SeedRecord(tx *gorm.DB, product *models.Product) error {
	rec := models.StockRecord{
		Date:            MonthStart(time.Now()),
		ProductID:       product.ID,
		OpeningQuantity: product.Quantity,
		SoldQuantity:    0,
		CurrentQuantity: product.Quantity,
		SuppliedQty:     0,
		StockValue:      float64(product.Quantity) * product.Price,
		UnitPrice:       product.Price,
	}
	return tx.Create(&rec).Error
}

// ApplySale impute une vente sur la ligne: vendu du mois +qty, stock actuel
// -qty, valorisation recalculée au prix unitaire de la vente.
func ApplySale(tx *gorm.DB, rec *models.StockRecord, qty int, unitPrice float64) error {
	rec.SoldQuantity += qty
	rec.CurrentQuantity -= qty
	rec.StockValue = float64(rec.CurrentQuantity) * unitPrice
	return saveCounters(tx, rec)
}

// RevertSale défait une vente sur la ligne de son mois d'origine. Le vendu du
// mois est plafonné à zéro: si la ligne a été réinitialisée entre-temps, on ne
// crée pas de compteur négatif.
func RevertSale(tx *gorm.DB, rec *models.StockRecord, qty int, unitPrice float64) error {
	rec.SoldQuantity -= qty
	if rec.SoldQuantity < 0 {
		rec.SoldQuantity = 0
	}
	rec.CurrentQuantity += qty
	rec.StockValue = float64(rec.CurrentQuantity) * unitPrice
	return saveCounters(tx, rec)
}

// ApplySupply impute un approvisionnement (delta positif ou négatif) sur la
// ligne. La valorisation est recalculée au prix de vente courant du produit,
// pas au prix d'achat de l'approvisionnement: la valeur de stock suit la
// valeur de revente. Les compteurs sont plafonnés à zéro en cas de retrait.
func ApplySupply(tx *gorm.DB, rec *models.StockRecord, delta int, productPrice float64) error {
	rec.SuppliedQty += delta
	if rec.SuppliedQty < 0 {
		rec.SuppliedQty = 0
	}
	rec.CurrentQuantity += delta
	if rec.CurrentQuantity < 0 {
		rec.CurrentQuantity = 0
	}
	rec.StockValue = float64(rec.CurrentQuantity) * productPrice
	return saveCounters(tx, rec)
}

func saveCounters(tx *gorm.DB, rec *models.StockRecord) error {
	return tx.Model(rec).Updates(map[string]interface{}{
		"quantite_vendu_mois":     rec.SoldQuantity,
		"stock_actuel":            rec.CurrentQuantity,
		"quantite_approvisionner": rec.SuppliedQty,
		"valeur_stock":            rec.StockValue,
	}).Error
}
