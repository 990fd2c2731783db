package database

import (
	"log"

	"videgrenier-backend/internal/config"
	"videgrenier-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Connexion à la base de données impossible: %v", err)
	}

	Migrate(DB)

	log.Println("Base de données connectée. Migration terminée.")
}

// Migrate applique le schéma. Aussi utilisée par les tests sur une base sqlite
// en mémoire.
func Migrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.StockRecord{},
		&models.Supplier{},
		&models.Supply{},
		&models.Sale{},
		&models.Review{},
		&models.NewsletterSubscriber{},
	)
	if err != nil {
		log.Fatalf("Erreur AutoMigrate: %v", err)
	}
}

// LockForUpdate pose un verrou pessimiste (SELECT ... FOR UPDATE) sur les
// lignes lues dans la transaction. Indispensable sur Postgres pour que le
// contrôle de stock ne soit pas une course entre deux ventes simultanées.
// SQLite n'a qu'un seul écrivain à la fois, le verrou y est superflu.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
