package service

import (
	"fmt"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

// OperatorGuard is the single authorization check for operator-only
// transitions. The operator set is fixed at startup.
type OperatorGuard struct {
	ids     map[int64]struct{}
	ordered []int64
}

func NewOperatorGuard(operatorIDs []int64) *OperatorGuard {
	g := &OperatorGuard{ids: make(map[int64]struct{}, len(operatorIDs))}
	for _, id := range operatorIDs {
		if _, dup := g.ids[id]; dup {
			continue
		}
		g.ids[id] = struct{}{}
		g.ordered = append(g.ordered, id)
	}
	return g
}

func (g *OperatorGuard) IsOperator(id int64) bool {
	_, ok := g.ids[id]
	return ok
}

// Authorize returns domain.ErrUnauthorized unless id is an operator.
func (g *OperatorGuard) Authorize(id int64) error {
	if !g.IsOperator(id) {
		return fmt.Errorf("caller %d: %w", id, domain.ErrUnauthorized)
	}
	return nil
}

// Operators returns operator IDs in configuration order.
func (g *OperatorGuard) Operators() []int64 {
	return append([]int64(nil), g.ordered...)
}
