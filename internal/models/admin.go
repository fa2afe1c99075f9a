package models

import "time"

type AdminUser struct {
	ID        string     `json:"id" db:"id"`
	Username  string     `json:"username" db:"username" example:"admin"`
	Name      string     `json:"name" db:"name" example:"Administrator"`
	Email     string     `json:"email" db:"email" example:"admin@equineenclave.com"`
	Role      string     `json:"role" db:"role" example:"superadmin"`
	IsActive  bool       `json:"isActive" db:"is_active"`
	LastLogin *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}
