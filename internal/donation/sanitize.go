package donation

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sanitization bounds for donor-supplied fields.
const (
	MinAmount = 1.0
	MaxAmount = 100000.0

	maxNameLen     = 100
	maxMessageLen  = 500
	maxCampaignLen = 200
	maxPhoneLen    = 20
)

var (
	// Conservative RFC-lite pattern; applied after lowercasing.
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9\-]+(\.[a-z0-9\-]+)*\.[a-z]{2,}$`)

	// Whole tag sequences. "<b>bold</b>" keeps "bold", not "b/b".
	tagPattern = regexp.MustCompile(`<[^>]*>`)

	// Inline event-handler attributes such as onclick= / onerror=.
	eventHandlerPattern = regexp.MustCompile(`(?i)\bon\w+\s*=`)

	jsSchemePattern = regexp.MustCompile(`(?i)javascript:`)
)

// ValidateAmount bounds-checks a donation amount and rounds valid values to
// two decimal places.
func ValidateAmount(amount float64) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, newValidationError("Amount must be a positive number")
	}
	if amount < MinAmount {
		return 0, newValidationError("Minimum donation is $1")
	}
	if amount > MaxAmount {
		return 0, newValidationError("Amount exceeds maximum limit of $100,000")
	}
	return math.Round(amount*100) / 100, nil
}

// SanitizeEmail lowercases and validates an optional email. Invalid input
// yields nil rather than an error; callers that require an email treat nil as
// a validation problem.
func SanitizeEmail(raw string) *string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > 255 || !emailPattern.MatchString(email) {
		return nil
	}
	return &email
}

// SanitizeText strips whole tag sequences, stray angle brackets, quotes,
// backslashes, javascript: scheme markers, inline event-handler patterns and
// control characters, then truncates to maxLen bytes without splitting a
// multi-byte rune. This is a defense-in-depth filter for free text, not a
// full HTML sanitizer.
func SanitizeText(raw string, maxLen int) string {
	s := tagPattern.ReplaceAllString(raw, "")
	s = jsSchemePattern.ReplaceAllString(s, "")
	s = eventHandlerPattern.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<', '>', '"', '\'', '\\', '`':
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if maxLen > 0 && len(out) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimSpace(out[:cut])
	}
	return out
}

// campaignKeywords maps campaign-name fragments to donation types. Scanned in
// order so more specific fragments win over generic ones.
var campaignKeywords = []struct {
	keyword string
	dtype   string
}{
	{"annadaana", TypeAnnadaana},
	{"annadana", TypeAnnadaana},
	{"annadan", TypeAnnadaana},
	{"food", TypeAnnadaana},
	{"sai aangan", TypeSaiAangan},
	{"aangan", TypeSaiAangan},
	{"needy", TypeServiceToNeedy},
	{"narayan", TypeServiceToNeedy},
	{"puja", TypePuja},
	{"pooja", TypePuja},
	{"archana", TypePuja},
	{"abhishek", TypePuja},
	{"recurring", TypeRecurring},
	{"monthly", TypeRecurring},
	{"seva", TypeService},
	{"service", TypeService},
	{"volunteer", TypeService},
}

// ResolveDonationType maps an explicit type or a campaign name onto the
// closed enumeration. An explicit enum member wins (case-insensitive);
// otherwise the campaign name is scanned for the first matching keyword;
// unmatched input defaults to general.
func ResolveDonationType(explicit, campaignName string) string {
	explicit = strings.ToLower(strings.TrimSpace(explicit))
	if donationTypes[explicit] {
		return explicit
	}

	campaign := strings.ToLower(campaignName)
	for _, entry := range campaignKeywords {
		if strings.Contains(campaign, entry.keyword) {
			return entry.dtype
		}
	}
	return TypeGeneral
}

// SanitizedDonor is the cleaned value set produced from raw donor input.
type SanitizedDonor struct {
	Name         string
	Email        *string
	Phone        *string
	Amount       float64
	CampaignName string
	DonationType string
	Message      string
}

// SanitizeDonorInput normalizes raw donor input. It returns either a
// sanitized value set or a non-empty list of validation problems; malformed
// optional fields degrade to safe defaults instead of failing.
func SanitizeDonorInput(req *InitiateDonationRequest) (*SanitizedDonor, []string) {
	var problems []string

	amount, err := ValidateAmount(req.Amount)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			problems = append(problems, verr.Problems...)
		} else {
			problems = append(problems, err.Error())
		}
	}

	name := SanitizeText(req.DonorName, maxNameLen)
	if name == "" {
		name = AnonymousDonorName
	}

	email := SanitizeEmail(req.DonorEmail)
	var phone *string
	if p := SanitizeText(req.DonorPhone, maxPhoneLen); p != "" {
		phone = &p
	}

	if len(problems) > 0 {
		return nil, problems
	}

	return &SanitizedDonor{
		Name:         name,
		Email:        email,
		Phone:        phone,
		Amount:       amount,
		CampaignName: SanitizeText(req.CampaignName, maxCampaignLen),
		DonationType: ResolveDonationType(req.DonationType, req.CampaignName),
		Message:      SanitizeText(req.Message, maxMessageLen),
	}, nil
}
