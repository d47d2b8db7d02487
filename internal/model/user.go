// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the data types shared by the dashboard's stores,
// auth gateways and handlers: principals, user role records, feedback and
// event log entries.
package model

import "time"

// Role is the authorization level stored for a principal.
type Role string

// Known roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole maps a stored role value to a Role. Anything that is not
// exactly "admin" is treated as a regular user.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Principal is an authenticated identity returned by an auth gateway.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// User is the role record kept for a principal.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
