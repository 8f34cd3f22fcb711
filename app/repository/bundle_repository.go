package repository

import (
	"github.com/BillFoxHQ/BillFox/app/models"
	"gorm.io/gorm"
)

// bundleRepository implements BundleRepository interface
type bundleRepository struct {
	db *gorm.DB
}

// NewBundleRepository creates a new bundle repository instance
func NewBundleRepository(db *gorm.DB) BundleRepository {
	return &bundleRepository{db: db}
}

func (r *bundleRepository) Create(bundle *models.SubscriptionBundle) error {
	return r.db.Create(bundle).Error
}

func (r *bundleRepository) GetByID(id uint) (*models.SubscriptionBundle, error) {
	var bundle models.SubscriptionBundle
	err := r.db.First(&bundle, id).Error
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (r *bundleRepository) GetByUUID(uuid string) (*models.SubscriptionBundle, error) {
	var bundle models.SubscriptionBundle
	err := r.db.Where("uuid = ?", uuid).First(&bundle).Error
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (r *bundleRepository) GetByAccountAndKey(accountID uint, externalKey string) (*models.SubscriptionBundle, error) {
	var bundle models.SubscriptionBundle
	err := r.db.Where("account_id = ? AND external_key = ?", accountID, externalKey).First(&bundle).Error
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (r *bundleRepository) GetByAccountID(accountID uint, offset, limit int) ([]models.SubscriptionBundle, error) {
	var bundles []models.SubscriptionBundle
	err := r.db.Where("account_id = ?", accountID).Offset(offset).Limit(limit).Order("id ASC").Find(&bundles).Error
	return bundles, err
}

func (r *bundleRepository) CountByAccountID(accountID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SubscriptionBundle{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}

func (r *bundleRepository) GetSubscriptions(bundleUUID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("bundle_uuid = ?", bundleUUID).Order("id ASC").Find(&subs).Error
	return subs, err
}
