// Package recordid derives the canonical string keys for persisted
// entities. Every handler that creates or looks up an entity must go
// through these functions: a divergent derivation silently orphans records.
package recordid

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Request derives the canonical id of a loan request:
// lowercase hex cooler address + "-" + decimal request id.
// Deterministic and injective over (cooler, id).
func Request(cooler common.Address, id *big.Int) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(cooler.Hex()), id.String())
}

// Loan derives the canonical id of a loan. Same scheme as Request; the two
// never collide in practice because request and loan ids live in separate
// stores.
func Loan(cooler common.Address, id *big.Int) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(cooler.Hex()), id.String())
}

// WithBlock suffixes an entity id with a block number. Used for record
// kinds that can occur more than once per loan (repay, extend), so that
// events in different blocks never collide.
func WithBlock(entityID string, block uint64) string {
	return fmt.Sprintf("%s-%d", entityID, block)
}
