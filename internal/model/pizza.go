// Package model defines data structures used throughout the application.
package model

// FirstAssignedID is the identifier handed to the first pizza created
// after startup. The built-in seed records occupy the ids below it.
const FirstAssignedID = 3

// Pizza represents a single pizza in the inventory.
type Pizza struct {
	ID           int    `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	IsGlutenFree bool   `json:"isGlutenFree" yaml:"isGlutenFree"`
}

// SeedPizzas returns the records present at process start.
// A fresh slice is returned on every call.
func SeedPizzas() []Pizza {
	return []Pizza{
		{ID: 1, Name: "Classic Italian", IsGlutenFree: false},
		{ID: 2, Name: "VEggie", IsGlutenFree: true},
	}
}

// APIResponse is a generic wrapper for service-level responses
// such as health checks.
type APIResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}
