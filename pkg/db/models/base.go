package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills an empty primary key on create. Ids are generated client side
// so the same models work on Postgres and SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every model, in dependency order, for AutoMigrate in SQLite dev mode.
func All() []any {
	return []any{
		&User{},
		&AuthUser{},
		&UserRole{},
		&Medicine{},
		&Order{},
		&OrderItem{},
		&Appointment{},
		&AmbulanceRequest{},
		&CartSnapshot{},
	}
}

func (u *User) BeforeCreate(*gorm.DB) error             { assignID(&u.ID); return nil }
func (u *AuthUser) BeforeCreate(*gorm.DB) error         { assignID(&u.ID); return nil }
func (r *UserRole) BeforeCreate(*gorm.DB) error         { assignID(&r.ID); return nil }
func (m *Medicine) BeforeCreate(*gorm.DB) error         { assignID(&m.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error            { assignID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error        { assignID(&i.ID); return nil }
func (a *Appointment) BeforeCreate(*gorm.DB) error      { assignID(&a.ID); return nil }
func (a *AmbulanceRequest) BeforeCreate(*gorm.DB) error { assignID(&a.ID); return nil }
