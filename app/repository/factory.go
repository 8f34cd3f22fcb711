package repository

import (
	"sync"

	"gorm.io/gorm"

	"github.com/BillFoxHQ/BillFox/internal/pkg/database"
)

// Repositories bundles all repository instances
type Repositories struct {
	Account AccountRepository
	Bundle  BundleRepository
}

// NewRepositories creates all repositories on a shared DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account: NewAccountRepository(db),
		Bundle:  NewBundleRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetAccountRepository returns the account repository instance
func (f *Factory) GetAccountRepository() AccountRepository {
	return f.GetRepositories().Account
}

// GetBundleRepository returns the bundle repository instance
func (f *Factory) GetBundleRepository() BundleRepository {
	return f.GetRepositories().Bundle
}

var (
	globalFactory *Factory
	globalOnce    sync.Once
)

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	globalOnce.Do(func() {
		globalFactory = NewFactory(database.GetDB())
	})
	return globalFactory
}
