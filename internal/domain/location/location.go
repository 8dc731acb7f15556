package location

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/google/uuid"
)

// Role says whose place a Location describes.
type Role string

const (
	RoleProvider Role = "provider"
	RoleCustomer Role = "customer"
)

// IsValid returns true if the role is recognized.
func (r Role) IsValid() bool {
	return r == RoleProvider || r == RoleCustomer
}

// Address holds the postal fields of a location.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsEmpty returns true when no address field is set.
func (a Address) IsEmpty() bool {
	return a.Line1 == "" && a.City == "" && a.State == "" && a.PostalCode == ""
}

// OneLine joins the non-empty fields into a single geocodable line.
func (a Address) OneLine() string {
	out := ""
	for _, part := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

// Location is a place tied to a provider or customer, optionally scoped to one booking.
// Rows are never deleted; a newer row for the same owner/booking supersedes older ones.
type Location struct {
	id               uuid.UUID
	role             Role
	ownerID          uuid.UUID
	bookingID        *uuid.UUID
	address          Address
	point            *geo.Point
	formattedAddress string
	placeRef         string
	notes            string
	verified         bool
	createdAt        time.Time
	updatedAt        time.Time
}

// NewLocation creates a Location. A verified location must carry coordinates.
func NewLocation(
	role Role,
	ownerID uuid.UUID,
	bookingID *uuid.UUID,
	address Address,
	point *geo.Point,
	notes string,
	verified bool,
) (*Location, error) {
	if !role.IsValid() {
		return nil, domain.NewValidationError("invalid location role: " + string(role))
	}
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if point == nil && address.IsEmpty() {
		return nil, domain.NewValidationError("either an address or coordinates are required")
	}
	if point != nil {
		if err := point.Validate(); err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
	}
	if verified && point == nil {
		return nil, domain.NewValidationError("a verified location requires coordinates")
	}

	now := time.Now().UTC()
	return &Location{
		id:        uuid.New(),
		role:      role,
		ownerID:   ownerID,
		bookingID: bookingID,
		address:   address,
		point:     point,
		notes:     notes,
		verified:  verified,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructLocation rebuilds a Location from persistence data (no validation).
func ReconstructLocation(
	id uuid.UUID,
	role Role,
	ownerID uuid.UUID,
	bookingID *uuid.UUID,
	address Address,
	point *geo.Point,
	formattedAddress, placeRef, notes string,
	verified bool,
	createdAt, updatedAt time.Time,
) *Location {
	return &Location{
		id:               id,
		role:             role,
		ownerID:          ownerID,
		bookingID:        bookingID,
		address:          address,
		point:            point,
		formattedAddress: formattedAddress,
		placeRef:         placeRef,
		notes:            notes,
		verified:         verified,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (l *Location) ID() uuid.UUID            { return l.id }
func (l *Location) Role() Role               { return l.role }
func (l *Location) OwnerID() uuid.UUID       { return l.ownerID }
func (l *Location) BookingID() *uuid.UUID    { return l.bookingID }
func (l *Location) Address() Address         { return l.address }
func (l *Location) Point() *geo.Point        { return l.point }
func (l *Location) FormattedAddress() string { return l.formattedAddress }
func (l *Location) PlaceRef() string         { return l.placeRef }
func (l *Location) Notes() string            { return l.notes }
func (l *Location) IsVerified() bool         { return l.verified }
func (l *Location) CreatedAt() time.Time     { return l.createdAt }
func (l *Location) UpdatedAt() time.Time     { return l.updatedAt }

// HasCoordinates returns true once the location has been geocoded or pinned.
func (l *Location) HasCoordinates() bool { return l.point != nil }

// ApplyGeocode stores a geocoding result and marks the location verified.
func (l *Location) ApplyGeocode(point geo.Point, formattedAddress, placeRef string) {
	l.point = &point
	l.formattedAddress = formattedAddress
	l.placeRef = placeRef
	l.verified = true
	l.updatedAt = time.Now().UTC()
}
