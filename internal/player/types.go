package player

import (
	"database/sql"
	"sync"
)

// store handles all database operations for the player registry.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Info represents a player in the store. Rating is on the club's 0-10
// scale; Confidence is the spread of the rating estimate (lower means we
// trust the rating more) and only ever shrinks as matches are processed.
type Info struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Confidence float64 `json:"confidence"`
	Active     bool    `json:"active"`
}
