package donation

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ==============================
// Status constants
// ==============================

// PendingDonation lifecycle is linear: pending → processing → completed|failed.
const (
	PendingStatusPending    = "pending"
	PendingStatusProcessing = "processing"
	PendingStatusCompleted  = "completed"
	PendingStatusFailed     = "failed"
)

const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusSuspended = "suspended"
)

// PendingExpiry bounds how long an initiated checkout stays reconcilable.
const PendingExpiry = 24 * time.Hour

// ==============================
// Donation types (closed enumeration)
// ==============================

const (
	TypeGeneral        = "general"
	TypePuja           = "puja"
	TypeAnnadaana      = "annadaana"
	TypeRecurring      = "recurring"
	TypeService        = "service"
	TypeSaiAangan      = "sai_aangan"
	TypeServiceToNeedy = "service_to_needy"
)

var donationTypes = map[string]bool{
	TypeGeneral:        true,
	TypePuja:           true,
	TypeAnnadaana:      true,
	TypeRecurring:      true,
	TypeService:        true,
	TypeSaiAangan:      true,
	TypeServiceToNeedy: true,
}

// IsValidDonationType reports membership in the closed enumeration. A
// persisted donation carrying a type outside this set is a data-integrity
// violation, not a valid state.
func IsValidDonationType(t string) bool {
	return donationTypes[strings.ToLower(strings.TrimSpace(t))]
}

// ==============================
// Models
// ==============================

// PendingDonation is the durable staging record bridging "user started
// checkout" and "provider confirmed payment". Owned exclusively by the
// payment pipeline.
type PendingDonation struct {
	ID            string            `gorm:"primaryKey;size:36" json:"id"`
	DonorName     string            `gorm:"size:100" json:"donor_name"`
	DonorEmail    *string           `gorm:"size:255" json:"donor_email"`
	DonorPhone    *string           `gorm:"size:20" json:"donor_phone"`
	Amount        float64           `gorm:"not null" json:"amount"`
	Currency      string            `gorm:"size:3;not null" json:"currency"`
	CampaignName  string            `gorm:"size:200" json:"campaign_name"`
	DonationType  string            `gorm:"size:30;not null;index" json:"donation_type"`
	Message       string            `gorm:"size:500" json:"message"`
	ReceiptNumber string            `gorm:"size:40;not null" json:"receipt_number"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	Status        string            `gorm:"size:20;not null;index" json:"status"`
	OrderID       *string           `gorm:"size:64;index" json:"order_id"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

func (PendingDonation) TableName() string {
	return "pending_donations"
}

// Donation is the durable, append-mostly record of money received. At most
// one row exists per provider transaction id; the unique index backs the
// idempotency pre-check so a race between duplicate captures resolves to a
// duplicate-key error rather than a second row.
type Donation struct {
	ID            uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	DonorName     string            `gorm:"size:100;not null" json:"donor_name"`
	DonorEmail    string            `gorm:"size:255" json:"donor_email"`
	DonorPhone    string            `gorm:"size:20" json:"donor_phone"`
	Amount        float64           `gorm:"not null" json:"amount"`
	Currency      string            `gorm:"size:3;not null" json:"currency"`
	DonationType  string            `gorm:"size:30;not null;index" json:"donation_type"`
	PaymentMethod string            `gorm:"size:30;not null" json:"payment_method"`
	PaymentStatus string            `gorm:"size:20;not null;index" json:"payment_status"`
	Purpose       string            `gorm:"size:500" json:"purpose"`
	TransactionID *string           `gorm:"size:64;uniqueIndex" json:"transaction_id"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Donation) TableName() string {
	return "donations"
}

// MetadataString returns a string-valued metadata entry, or "".
func (d *Donation) MetadataString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	if v, ok := d.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Placeholders used when neither a pending record nor the provider payer
// identity supplies donor data.
const (
	AnonymousDonorName  = "Anonymous Donor"
	AnonymousDonorEmail = "anonymous@donor.local"
	DefaultPurpose      = "Temple donation"
)
