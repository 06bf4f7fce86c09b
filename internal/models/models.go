package models

import (
	"fmt"
	"strings"
	"time"
)

// Account represents a user's credit ledger entry
type Account struct {
	UserID     string
	CoversUsed int64
	Balance    int64 // minor currency units (cents)
}

// Platform is a publishing platform a cover is sized for
type Platform string

const (
	PlatformWebnovel  Platform = "webnovel"
	PlatformLetterlux Platform = "letterlux"

	// DefaultPlatform is substituted when production for the requested platform fails
	DefaultPlatform = PlatformWebnovel
)

// Dimensions holds a cover size in pixels
type Dimensions struct {
	Width  int
	Height int
}

var platformDimensions = map[Platform]Dimensions{
	PlatformWebnovel:  {Width: 512, Height: 800},
	PlatformLetterlux: {Width: 1600, Height: 2560},
}

// Platforms returns the recognized platforms in display order
func Platforms() []Platform {
	return []Platform{PlatformWebnovel, PlatformLetterlux}
}

// ParsePlatform resolves a platform name, rejecting anything outside the known set
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	_, ok := platformDimensions[p]
	return p, ok
}

// Dimensions returns the cover size for the platform
func (p Platform) Dimensions() Dimensions {
	if d, ok := platformDimensions[p]; ok {
		return d
	}
	return platformDimensions[DefaultPlatform]
}

// Label returns a human readable platform name
func (p Platform) Label() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// CoverRequest is a single cover production request
type CoverRequest struct {
	Title         string
	Platform      Platform
	RequesterName string
}

// CoverResult is the outcome of cover production
type CoverResult struct {
	ImageURL     string
	Platform     Platform
	UsedFallback bool
}

// Checkout is a payment link issued by a payment provider
type Checkout struct {
	TxRef    string
	URL      string
	Amount   int64
	Currency string
}

// PaymentNotice is a settled payment reported by a payment provider
type PaymentNotice struct {
	TxRef    string
	UserID   string
	Amount   int64
	Currency string
	Status   string
	At       time.Time
}
