package presence

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidUpdate is returned when a location update lacks required fields
// or carries unusable coordinates.
var ErrInvalidUpdate = errors.New("invalid location update")

// Record is the canonical state of one participant as held by the Registry.
type Record struct {
	ID        string
	Name      string
	Lat       float64
	Lng       float64
	AvatarRef string
	UpdatedAt time.Time
	ConnID    string
}

// Update is a raw location update as received from a connection.
type Update struct {
	ID        string
	Name      string
	Lat       float64
	Lng       float64
	AvatarRef string
}

// Validate trims the display fields and checks required fields and
// coordinate ranges. The id is opaque and kept byte for byte.
func (u *Update) Validate() error {
	u.Name = strings.TrimSpace(u.Name)
	u.AvatarRef = strings.TrimSpace(u.AvatarRef)

	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidUpdate)
	}
	if u.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUpdate)
	}
	if !validCoord(u.Lat, 90) {
		return fmt.Errorf("%w: lat out of range", ErrInvalidUpdate)
	}
	if !validCoord(u.Lng, 180) {
		return fmt.Errorf("%w: lng out of range", ErrInvalidUpdate)
	}
	return nil
}

func validCoord(v, limit float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= -limit && v <= limit
}
