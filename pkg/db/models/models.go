package models

// All lists every persisted model in dependency order. Used by AutoMigrate
// for the embedded driver and by tests.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Service{},
		&Group{},
		&GroupMember{},
		&Product{},
		&ProductImage{},
		&Blog{},
		&BlogImage{},
		&Cart{},
		&CartItem{},
	}
}
