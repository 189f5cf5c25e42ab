// Package models declares the persisted entities of the credential and
// session authority.
package models

import "time"

// Role enumerates the roles the service understands. Stored as text.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is a local replica of an identity-service account. Profile fields are
// owned upstream and change only through reconciliation events; the password
// hash and IsActive flag are the parts this service manages day to day.
type User struct {
	ID           string
	Email        string
	UserName     string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
