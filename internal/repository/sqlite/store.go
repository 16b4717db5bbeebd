package sqlite

import (
	"database/sql"

	"github.com/ethioshop/marketplace/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db            *sql.DB
	users         repository.UserRepository
	orders        repository.OrderRepository
	notifications repository.NotificationRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		users:         &userRepo{db: db},
		orders:        &orderRepo{db: db},
		notifications: &notificationRepo{db: db},
	}
}

func (s *Store) Users() repository.UserRepository {
	return s.users
}

func (s *Store) Orders() repository.OrderRepository {
	return s.orders
}

func (s *Store) Notifications() repository.NotificationRepository {
	return s.notifications
}
