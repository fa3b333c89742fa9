// Package domain holds the identifier and enum value types shared across the
// engine. Construct values via the Parse* functions at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "shamba/pkg/domain-errors"
)

// Typed UUID wrappers. Distinct types keep a claim id from ever being passed
// where a validator id is expected; the compiler enforces it.
type (
	ClaimID     uuid.UUID
	ValidatorID uuid.UUID
	DisputeID   uuid.UUID
	UserID      uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", what)
	}
	return id, nil
}

// ParseClaimID constructs a ClaimID from external input.
func ParseClaimID(s string) (ClaimID, error) {
	id, err := parseUUID(s, "claim id")
	return ClaimID(id), err
}

// ParseValidatorID constructs a ValidatorID from external input.
func ParseValidatorID(s string) (ValidatorID, error) {
	id, err := parseUUID(s, "validator id")
	return ValidatorID(id), err
}

// ParseDisputeID constructs a DisputeID from external input.
func ParseDisputeID(s string) (DisputeID, error) {
	id, err := parseUUID(s, "dispute id")
	return DisputeID(id), err
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user id")
	return UserID(id), err
}

// NewClaimID mints a fresh claim id.
func NewClaimID() ClaimID { return ClaimID(uuid.New()) }

// NewValidatorID mints a fresh validator id.
func NewValidatorID() ValidatorID { return ValidatorID(uuid.New()) }

// NewDisputeID mints a fresh dispute id.
func NewDisputeID() DisputeID { return DisputeID(uuid.New()) }

// NewUserID mints a fresh user id.
func NewUserID() UserID { return UserID(uuid.New()) }

func (id ClaimID) String() string     { return uuid.UUID(id).String() }
func (id ValidatorID) String() string { return uuid.UUID(id).String() }
func (id DisputeID) String() string   { return uuid.UUID(id).String() }
func (id UserID) String() string      { return uuid.UUID(id).String() }

// The wrappers marshal as canonical UUID strings, not as raw byte arrays.
func (id ClaimID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ValidatorID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id DisputeID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

// UnmarshalText round-trips any marshaled value, including the nil UUID.
// Validation of external input stays in the Parse* functions.
func unmarshalUUID(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	return uuid.Parse(string(b))
}

func (id *ClaimID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b)
	*id = ClaimID(u)
	return err
}

func (id *ValidatorID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b)
	*id = ValidatorID(u)
	return err
}

func (id *DisputeID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b)
	*id = DisputeID(u)
	return err
}

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b)
	*id = UserID(u)
	return err
}

func (id ClaimID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ValidatorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DisputeID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
