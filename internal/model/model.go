// Package model defines domain entities shared by the client core and the API server.
package model

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// DateLayout is the wire format for calendar dates (no time-of-day component).
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as "YYYY-MM-DD". The zero value marshals
// to JSON null so optional dates can be omitted on the wire.
type Date struct {
	time.Time
}

// NewDate builds a Date truncated to whole-day granularity in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// User is an account profile as exposed by the API (never includes secrets).
type User struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Tokens is the pair issued at login. The refresh token is persisted by the
// client but no refresh-exchange flow exists; only the access token is used.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Product is a tracked food item. The three expiration fields are derived:
// the server computes them against its clock at response time and the client
// treats the wire values as authoritative for server-owned records.
type Product struct {
	ID                  uuid.UUID  `json:"id"`
	UserID              uuid.UUID  `json:"user_id"`
	Name                string     `json:"name"`
	CategoryID          *uuid.UUID `json:"category_id,omitempty"`
	Barcode             string     `json:"barcode,omitempty"`
	ShopName            string     `json:"shop_name,omitempty"`
	PurchaseDate        Date       `json:"purchase_date,omitempty"`
	ExpirationDate      Date       `json:"expiration_date"`
	Amount              float64    `json:"amount,omitempty"`
	Unit                string     `json:"unit,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	ImageURL            string     `json:"image_url,omitempty"`
	IsActive            bool       `json:"is_active"`
	DaysUntilExpiration int        `json:"days_until_expiration"`
	IsExpired           bool       `json:"is_expired"`
	IsNearExpiration    bool       `json:"is_near_expiration"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// ProductDraft is a not-yet-persisted product as submitted on create.
// Image carries an optional binary payload; when present the request is
// encoded as multipart instead of JSON.
type ProductDraft struct {
	Name           string     `json:"name"`
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	Barcode        string     `json:"barcode,omitempty"`
	ShopName       string     `json:"shop_name,omitempty"`
	PurchaseDate   Date       `json:"purchase_date,omitempty"`
	ExpirationDate Date       `json:"expiration_date"`
	Amount         float64    `json:"amount,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	Notes          string     `json:"notes,omitempty"`

	Image     []byte `json:"-"`
	ImageName string `json:"-"`
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name           *string    `json:"name,omitempty"`
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	Barcode        *string    `json:"barcode,omitempty"`
	ShopName       *string    `json:"shop_name,omitempty"`
	PurchaseDate   *Date      `json:"purchase_date,omitempty"`
	ExpirationDate *Date      `json:"expiration_date,omitempty"`
	Amount         *float64   `json:"amount,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`

	Image     []byte `json:"-"`
	ImageName string `json:"-"`
}

// Category groups products; categories may nest one level via ParentID.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ScannedProduct is the metadata resolved for a barcode from the external
// product database.
type ScannedProduct struct {
	Name     string `json:"name"`
	Barcode  string `json:"barcode"`
	Brand    string `json:"brand,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ScanResult is the response of the barcode scan endpoint.
type ScanResult struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	ProductData *ScannedProduct `json:"product_data,omitempty"`
}
