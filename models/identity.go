package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOfficer Role = "officer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOfficer
}

// Identity is an admin or registry officer account. Both roles share the
// shape but live in separate collections, so emails are unique per role.
type Identity struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"passwordHash" json:"-"` // never expose
	Role         Role          `bson:"role" json:"role"`
	FullName     string        `bson:"fullName,omitempty" json:"fullName,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Principal is what a verified token says about the caller.
type Principal struct {
	ID   string
	Role Role
}
