package catalog

import (
	"errors"

	"github.com/BillFoxHQ/BillFox/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the catalog service.
type Repository interface {
	GetActivePlan(name string) (*models.CatalogPlan, error)
	GetPhase(name string) (*models.CatalogPhase, error)
	GetAddOnRule(baseProduct, addOnProduct string) (*models.CatalogAddOnRule, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a catalog repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetActivePlan(name string) (*models.CatalogPlan, error) {
	var p models.CatalogPlan
	err := r.db.Where("name = ? AND is_active = ?", name, true).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPhase(name string) (*models.CatalogPhase, error) {
	var ph models.CatalogPhase
	err := r.db.Where("name = ?", name).First(&ph).Error
	if err != nil {
		return nil, err
	}
	return &ph, nil
}

func (r *gormRepository) GetAddOnRule(baseProduct, addOnProduct string) (*models.CatalogAddOnRule, error) {
	var rule models.CatalogAddOnRule
	err := r.db.Where("base_product = ? AND addon_product = ?", baseProduct, addOnProduct).First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// StaticRepository is an in-memory catalog edition, used by tests and by
// deployments that ship the catalog as seed data instead of managing it live.
type StaticRepository struct {
	Plans  []models.CatalogPlan
	Phases []models.CatalogPhase
	Rules  []models.CatalogAddOnRule
}

func (r *StaticRepository) GetActivePlan(name string) (*models.CatalogPlan, error) {
	for i := range r.Plans {
		if r.Plans[i].Name == name && r.Plans[i].IsActive {
			return &r.Plans[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *StaticRepository) GetPhase(name string) (*models.CatalogPhase, error) {
	for i := range r.Phases {
		if r.Phases[i].Name == name {
			return &r.Phases[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *StaticRepository) GetAddOnRule(baseProduct, addOnProduct string) (*models.CatalogAddOnRule, error) {
	for i := range r.Rules {
		if r.Rules[i].BaseProduct == baseProduct && r.Rules[i].AddOnProduct == addOnProduct {
			return &r.Rules[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
