package database

import (
	"time"

	"gorm.io/datatypes"
)

// CatalogTarget is the metadata row for a catalog star. Series samples live
// in the object store; this table only carries target-level attributes used
// to enrich analyses and inference requests.
type CatalogTarget struct {
	TicID  string `gorm:"primaryKey;size:32"`
	Sector int    `gorm:"primaryKey"`

	Tmag     *float64
	Teff     *float64
	Rad      *float64
	Crowdsap *float64

	// Extras holds catalog attributes with no dedicated column (contratio
	// and friends) as a JSON document.
	Extras datatypes.JSON

	CreationTime time.Time
}
