package models

import "time"

// Session is one refresh lineage. Token holds the only refresh token value
// currently accepted for the row; rotation replaces it in place.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Token     string    `db:"token" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	RotatedAt time.Time `db:"rotated_at" json:"rotatedAt"`
}
