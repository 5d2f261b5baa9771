// Package idgen provides the identifiers handed out by a virtual clock: a
// sequential generator for timer ids and random session ids.
package idgen

import (
	"sync/atomic"

	"github.com/rs/xid"
)

// ID is a unique identifier represented as a uint64.
type ID uint64

// Generator produces unique identifiers.
type Generator interface {
	Generate() ID
}

// New returns a sequential generator whose first emitted ID is "1".
func New() Generator {
	return &sequentialGenerator{}
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() ID {
	return ID(atomic.AddUint64(&g.next, 1))
}

// NewSessionID returns a globally unique, sortable id for one enabled clock
// session. Unlike timer ids it is not deterministic and should only be used to
// tell recordings apart.
func NewSessionID() string {
	return xid.New().String()
}
