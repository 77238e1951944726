// Package store provides data storage interfaces and implementations.
package store

import (
	"errors"

	"github.com/vyrodovalexey/pizza-api/internal/model"
)

// Seed errors.
var (
	ErrInvalidSeed = errors.New("invalid seed data")
	ErrDuplicateID = errors.New("duplicate pizza ID")
)

// Store defines the interface for pizza storage operations.
// Operations never fail; a missing record is reported by the boolean
// result of Get and silently ignored by Update and Delete.
type Store interface {
	// List returns all pizzas in insertion order.
	List() []model.Pizza

	// Get returns the first pizza with the given ID.
	Get(id int) (model.Pizza, bool)

	// Add stores the pizza under a newly assigned ID and returns the stored record.
	// Any ID set by the caller is ignored.
	Add(p model.Pizza) model.Pizza

	// Update replaces the pizza that has the same ID as p.
	Update(p model.Pizza)

	// Delete removes the pizza with the given ID.
	Delete(id int)

	// Len returns the number of stored pizzas.
	Len() int
}
