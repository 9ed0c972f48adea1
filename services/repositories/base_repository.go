package repositories

import (
	"gorm.io/gorm"
)

// BaseRepository provides common database functionality
type BaseRepository struct {
	db *gorm.DB
}

func NewBaseRepository(db *gorm.DB) BaseRepository {
	return BaseRepository{db: db}
}

// DB returns the underlying database connection
func (r *BaseRepository) DB() *gorm.DB {
	return r.db
}

// WithTx returns a copy of the repository bound to tx. Repositories that
// participate in multi-table writes use this so the caller controls the
// transaction boundary.
func (r *BaseRepository) WithTx(tx *gorm.DB) BaseRepository {
	return BaseRepository{db: tx}
}
