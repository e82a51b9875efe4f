package models

// All lists the models migrated at startup, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&EmailConfirmation{},
		&Job{},
	}
}
