package repository

import (
	"slotline/internal/database"
)

type Repositories struct {
	Bookings *BookingRepository
	Events   *BookingEventRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Bookings: NewBookingRepository(db),
		Events:   NewBookingEventRepository(db),
	}
}
