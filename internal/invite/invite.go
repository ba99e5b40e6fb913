// Package invite generates company invite codes: opaque, fixed-minimum-length
// identifiers derived deterministically from the company ID and a secret salt.
package invite

import (
	"fmt"

	hashids "github.com/speps/go-hashids/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	codeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeMinLength = 12
)

// Generator encodes company IDs into invite codes. The same ID and salt
// always produce the same code.
type Generator struct {
	h *hashids.HashID
}

// NewGenerator creates a generator keyed with the given salt.
func NewGenerator(salt string) (*Generator, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = codeMinLength
	hd.Alphabet = codeAlphabet
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise invite code generator: %w", err)
	}
	return &Generator{h: h}, nil
}

// Generate returns the invite code for a company ID.
func (g *Generator) Generate(id primitive.ObjectID) (string, error) {
	code, err := g.h.EncodeHex(id.Hex())
	if err != nil {
		return "", fmt.Errorf("failed to encode invite code: %w", err)
	}
	return code, nil
}
