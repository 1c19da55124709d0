package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = domain.ErrNotFound

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Courses *CoursesRepository
	Reviews *ReviewsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Courses: &CoursesRepository{pool: pool},
		Reviews: &ReviewsRepository{pool: pool},
	}
}
