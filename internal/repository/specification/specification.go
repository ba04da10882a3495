package specification

import "gorm.io/gorm"

// Specification narrows a GORM query. Relational repositories accept a
// variadic list and apply them in order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// ApplyAll chains every specification onto db.
func ApplyAll(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}
