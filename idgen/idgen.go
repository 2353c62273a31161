// Package idgen generates identifiers for scheduled events and recordings.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// New returns a sequential generator whose first emitted ID is "1". Sequential
// IDs keep virtual-time runs reproducible.
func New() Generator {
	return &sequentialGenerator{}
}

// NewParallel returns a generator backed by globally unique xids. IDs are not
// deterministic across runs.
func NewParallel() Generator {
	return parallelGenerator{}
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.next, 1), 10)
}

type parallelGenerator struct{}

func (parallelGenerator) Generate() string {
	return xid.New().String()
}
