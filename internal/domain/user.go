package domain

import "time"

// User создаётся один раз при первом входе через внешний сервис идентификации.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
