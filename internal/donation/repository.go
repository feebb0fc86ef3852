package donation

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	// Pending-donation store
	CreatePending(ctx context.Context, pending *PendingDonation) error
	GetPendingByID(ctx context.Context, id string) (*PendingDonation, error)
	GetPendingByOrderID(ctx context.Context, orderID string) (*PendingDonation, error)
	AttachOrder(ctx context.Context, pendingID, orderID string) error
	MarkPendingCompleted(ctx context.Context, orderID string, donationID uint) error
	MarkPendingFailed(ctx context.Context, pendingID string) error
	MarkPendingFailedByOrderID(ctx context.Context, orderID string) error

	// Donation store
	CreateDonation(ctx context.Context, donation *Donation) error
	GetDonationByID(ctx context.Context, id uint) (*Donation, error)
	GetDonationByTransactionID(ctx context.Context, transactionID string) (*Donation, error)
	GetDonationByOrderID(ctx context.Context, orderID string) (*Donation, error)
	GetDonationBySubscriptionID(ctx context.Context, subscriptionID string) (*Donation, error)
	UpdateStatusBySubscriptionID(ctx context.Context, subscriptionID, status string) (int64, error)
	ListRecentDonations(ctx context.Context, limit int) ([]RecentDonationItem, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ==============================
// Pending-Donation Store
// ==============================

func (r *repository) CreatePending(ctx context.Context, pending *PendingDonation) error {
	return r.db.WithContext(ctx).Create(pending).Error
}

func (r *repository) GetPendingByID(ctx context.Context, id string) (*PendingDonation, error) {
	var pending PendingDonation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *repository) GetPendingByOrderID(ctx context.Context, orderID string) (*PendingDonation, error) {
	var pending PendingDonation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

// AttachOrder links the provider order and moves pending → processing.
func (r *repository) AttachOrder(ctx context.Context, pendingID, orderID string) error {
	return r.db.WithContext(ctx).
		Model(&PendingDonation{}).
		Where("id = ? AND status = ?", pendingID, PendingStatusPending).
		Updates(map[string]interface{}{
			"order_id": orderID,
			"status":   PendingStatusProcessing,
		}).Error
}

// MergeCompletionMetadata folds the completion keys into a pending row's
// existing metadata so donor-supplied keys from initiation survive.
func MergeCompletionMetadata(meta datatypes.JSONMap, donationID uint, completedAt time.Time) datatypes.JSONMap {
	merged := datatypes.JSONMap{}
	for k, v := range meta {
		merged[k] = v
	}
	// Stored as float64, matching the number type a JSONB read yields.
	merged["donation_id"] = float64(donationID)
	merged["completed_at"] = completedAt.UTC().Format(time.RFC3339)
	return merged
}

func (r *repository) MarkPendingCompleted(ctx context.Context, orderID string, donationID uint) error {
	pending, err := r.GetPendingByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&PendingDonation{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":   PendingStatusCompleted,
			"metadata": MergeCompletionMetadata(pending.Metadata, donationID, time.Now()),
		}).Error
}

func (r *repository) MarkPendingFailed(ctx context.Context, pendingID string) error {
	return r.db.WithContext(ctx).
		Model(&PendingDonation{}).
		Where("id = ?", pendingID).
		Update("status", PendingStatusFailed).Error
}

func (r *repository) MarkPendingFailedByOrderID(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).
		Model(&PendingDonation{}).
		Where("order_id = ?", orderID).
		Update("status", PendingStatusFailed).Error
}

// ==============================
// Donation Store
// ==============================

func (r *repository) CreateDonation(ctx context.Context, donation *Donation) error {
	err := r.db.WithContext(ctx).Create(donation).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateTransaction
	}
	return err
}

func (r *repository) GetDonationByID(ctx context.Context, id uint) (*Donation, error) {
	var donation Donation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *repository) GetDonationByTransactionID(ctx context.Context, transactionID string) (*Donation, error) {
	var donation Donation
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// GetDonationByOrderID finds the donation recorded for a provider order via
// the metadata blob. Used when a repeated capture attempt is rejected by the
// provider before a transaction id is known.
func (r *repository) GetDonationByOrderID(ctx context.Context, orderID string) (*Donation, error) {
	var donation Donation
	err := r.db.WithContext(ctx).
		Where(datatypes.JSONQuery("metadata").Equals(orderID, "order_id")).
		First(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *repository) GetDonationBySubscriptionID(ctx context.Context, subscriptionID string) (*Donation, error) {
	var donation Donation
	err := r.db.WithContext(ctx).
		Where(datatypes.JSONQuery("metadata").Equals(subscriptionID, "subscription_id")).
		Order("created_at ASC").
		First(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// UpdateStatusBySubscriptionID updates every donation row whose metadata
// references the subscription. Correlation is a JSON equality lookup, not a
// foreign key join.
func (r *repository) UpdateStatusBySubscriptionID(ctx context.Context, subscriptionID, status string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Donation{}).
		Where(datatypes.JSONQuery("metadata").Equals(subscriptionID, "subscription_id")).
		Update("payment_status", status)
	return result.RowsAffected, result.Error
}

func (r *repository) ListRecentDonations(ctx context.Context, limit int) ([]RecentDonationItem, error) {
	var items []RecentDonationItem
	err := r.db.WithContext(ctx).
		Table("donations").
		Select("id, donor_name, amount, currency, donation_type, payment_status, created_at").
		Order("created_at DESC").
		Limit(limit).
		Scan(&items).Error
	return items, err
}
