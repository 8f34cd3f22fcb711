package repository

import (
	"github.com/BillFoxHQ/BillFox/app/models"
)

// AccountRepository defines the interface for account-related database operations
type AccountRepository interface {
	Create(account *models.Account) error
	GetByID(id uint) (*models.Account, error)
	GetByUUID(uuid string) (*models.Account, error)
	GetByExternalID(externalID string) (*models.Account, error)
	Update(account *models.Account) error
	List(offset, limit int) ([]models.Account, error)
	Count() (int64, error)
}

// BundleRepository defines the interface for bundle-related database operations
type BundleRepository interface {
	Create(bundle *models.SubscriptionBundle) error
	GetByID(id uint) (*models.SubscriptionBundle, error)
	GetByUUID(uuid string) (*models.SubscriptionBundle, error)
	GetByAccountAndKey(accountID uint, externalKey string) (*models.SubscriptionBundle, error)
	GetByAccountID(accountID uint, offset, limit int) ([]models.SubscriptionBundle, error)
	CountByAccountID(accountID uint) (int64, error)
	GetSubscriptions(bundleUUID string) ([]models.Subscription, error)
}
