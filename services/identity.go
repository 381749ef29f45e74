package services

import (
	"github.com/google/uuid"
)

// IdentityGenerator produces globally unique artifact identifiers. Generation
// is pure and cannot fail; collision probability is negligible over the
// lifetime of the store.
type IdentityGenerator interface {
	Generate() string
}

// UUIDGenerator issues random (v4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}
