package repair

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/BillFoxHQ/BillFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BundleState is a bundle loaded with its subscriptions (base first) and the
// complete event log of each, across all versions, ordered by effective date
// with insertion order breaking ties.
type BundleState struct {
	Bundle        models.SubscriptionBundle
	Subscriptions []models.Subscription
	Events        map[string][]models.SubscriptionEvent
}

// ViewID computes the bundle's current optimistic-concurrency fingerprint.
func (st *BundleState) ViewID() string {
	sets := make([][]models.SubscriptionEvent, 0, len(st.Events))
	for _, evs := range st.Events {
		sets = append(sets, evs)
	}
	return ComputeViewID(st.Bundle.LastSysUpdateAt, sets...)
}

// SubscriptionCommit is one subscription's share of an atomic repair commit.
type SubscriptionCommit struct {
	SubscriptionUUID string
	ActiveVersion    int64
	StartDate        time.Time
	BundleStartDate  time.Time
	RetainedEventIDs []string
	NewEvents        []models.SubscriptionEvent
}

// Commit is the full mutation a repair wants applied. ExpectedViewID is
// re-checked inside the transaction so a concurrent commit between validation
// and write is still caught.
type Commit struct {
	BundleUUID     string
	ExpectedViewID string
	Subscriptions  []SubscriptionCommit
}

// Store is the event store adapter the repair engine runs against.
type Store interface {
	LoadBundle(ctx context.Context, bundleUUID string) (*BundleState, error)
	LoadBundleByKey(ctx context.Context, accountID uint, externalKey string) (*BundleState, error)
	CommitRepair(ctx context.Context, commit *Commit) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a repair store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) LoadBundle(ctx context.Context, bundleUUID string) (*BundleState, error) {
	var bundle models.SubscriptionBundle
	err := s.db.WithContext(ctx).Where("uuid = ?", bundleUUID).First(&bundle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Code: CodeUnknownBundle, BundleID: bundleUUID}
		}
		return nil, err
	}
	return s.loadState(ctx, s.db, &bundle)
}

func (s *gormStore) LoadBundleByKey(ctx context.Context, accountID uint, externalKey string) (*BundleState, error) {
	var bundle models.SubscriptionBundle
	err := s.db.WithContext(ctx).Where("account_id = ? AND external_key = ?", accountID, externalKey).First(&bundle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Code: CodeUnknownBundle, BundleID: externalKey}
		}
		return nil, err
	}
	return s.loadState(ctx, s.db, &bundle)
}

func (s *gormStore) loadState(ctx context.Context, db *gorm.DB, bundle *models.SubscriptionBundle) (*BundleState, error) {
	var subs []models.Subscription
	if err := db.WithContext(ctx).Where("bundle_uuid = ?", bundle.UUID).Order("id ASC").Find(&subs).Error; err != nil {
		return nil, err
	}
	sortBaseFirst(subs)

	state := &BundleState{
		Bundle:        *bundle,
		Subscriptions: subs,
		Events:        make(map[string][]models.SubscriptionEvent, len(subs)),
	}
	if len(subs) == 0 {
		return state, nil
	}

	uuids := make([]string, len(subs))
	for i := range subs {
		uuids[i] = subs[i].UUID
	}
	var events []models.SubscriptionEvent
	if err := db.WithContext(ctx).
		Where("subscription_uuid IN ?", uuids).
		Order("effective_date ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	for _, ev := range events {
		state.Events[ev.SubscriptionUUID] = append(state.Events[ev.SubscriptionUUID], ev)
	}
	return state, nil
}

// CommitRepair applies the whole repair in one transaction: bump each
// subscription to its new version, re-tag the retained events, insert the
// materialized ones, and touch the bundle's last system update. The expected
// view id is recomputed under a row lock first; a mismatch means someone
// committed in between and the repair loses with ViewChanged.
func (s *gormStore) CommitRepair(ctx context.Context, commit *Commit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bundle models.SubscriptionBundle
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("uuid = ?", commit.BundleUUID).First(&bundle).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &Error{Code: CodeUnknownBundle, BundleID: commit.BundleUUID}
			}
			return err
		}

		state, err := s.loadState(ctx, tx, &bundle)
		if err != nil {
			return err
		}
		if current := state.ViewID(); current != commit.ExpectedViewID {
			return &Error{
				Code:          CodeViewChanged,
				BundleID:      commit.BundleUUID,
				StaleViewID:   commit.ExpectedViewID,
				CurrentViewID: current,
			}
		}

		subByUUID := make(map[string]*models.Subscription, len(state.Subscriptions))
		for i := range state.Subscriptions {
			subByUUID[state.Subscriptions[i].UUID] = &state.Subscriptions[i]
		}

		for _, sc := range commit.Subscriptions {
			row := subByUUID[sc.SubscriptionUUID]
			if row == nil {
				return &Error{Code: CodeUnknownSubscription, SubscriptionID: sc.SubscriptionUUID}
			}

			updates := map[string]interface{}{
				"active_version":    sc.ActiveVersion,
				"start_date":        sc.StartDate,
				"bundle_start_date": sc.BundleStartDate,
			}
			if err := tx.Model(&models.Subscription{}).Where("uuid = ?", sc.SubscriptionUUID).Updates(updates).Error; err != nil {
				return err
			}

			if len(sc.RetainedEventIDs) > 0 {
				if err := tx.Model(&models.SubscriptionEvent{}).
					Where("uuid IN ?", sc.RetainedEventIDs).
					Update("active_version", sc.ActiveVersion).Error; err != nil {
					return err
				}
			}

			for i := range sc.NewEvents {
				ev := sc.NewEvents[i]
				ev.ID = 0
				ev.SubscriptionID = row.ID
				if err := tx.Create(&ev).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&models.SubscriptionBundle{}).
			Where("uuid = ?", commit.BundleUUID).
			Update("last_sys_update_at", time.Now()).Error
	})
}

// sortBaseFirst orders subscriptions base, add-ons, standalone, stable within
// each group. The validator relies on seeing the base before its add-ons.
func sortBaseFirst(subs []models.Subscription) {
	rank := func(category string) int {
		switch category {
		case models.SubscriptionCategoryBase:
			return 0
		case models.SubscriptionCategoryAddOn:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return rank(subs[i].Category) < rank(subs[j].Category)
	})
}
