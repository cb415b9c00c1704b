package database

import (
	"log"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&CatalogTarget{})
			},
			Rollback: func(txn *gorm.DB) error {
				return txn.Migrator().DropTable(&CatalogTarget{})
			},
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		// Run on a clean database instead of replaying every migration.
		log.Println("clean database detected, running full schema initialization")
		return txn.AutoMigrate(&CatalogTarget{})
	})

	return migrator
}
