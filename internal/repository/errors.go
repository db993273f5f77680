// Package repository provides the pgx data access layer for the arena backend.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors for repository operations.
var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownGame       = errors.New("game does not belong to this tournament")
	ErrGameFull          = errors.New("game has reached its capacity")
	ErrAlreadyRegistered = errors.New("already registered for this tournament")
	ErrNothingToUpdate   = errors.New("nothing to update")
)

// setBuilder accumulates "col = $n" clauses for partial updates.
// Argument $1 is reserved for the row id.
type setBuilder struct {
	sets []string
	args []any
}

func newSetBuilder(id string) *setBuilder {
	return &setBuilder{args: []any{id}}
}

func (b *setBuilder) add(col string, v any) {
	b.args = append(b.args, v)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", col, len(b.args)))
}

func (b *setBuilder) empty() bool {
	return len(b.sets) == 0
}

func (b *setBuilder) clause() string {
	return strings.Join(b.sets, ", ")
}
