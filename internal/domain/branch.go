package domain

import "time"

// Represents a company branch (sucursal). Branch staff work the requests of
// the branch's zone.
type Branch struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Zone      string    `db:"zone"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
}
