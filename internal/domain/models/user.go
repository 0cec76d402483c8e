// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents users of the application.
//
// Users sign in with their email address. The role decides what they can
// do with the repository: students upload into subject/year folders,
// teachers comment and grade, admins manage users, careers and folders.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName  string             `bson:"first_name" json:"first_name"`
	LastName   string             `bson:"last_name" json:"last_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped

	Email        string  `bson:"email" json:"email"`               // stored lowercase
	PasswordHash *string `bson:"password_hash,omitempty" json:"-"` // bcrypt hash (never in JSON)

	Role   string `bson:"role" json:"role"`                         // student, teacher, admin
	Status string `bson:"status,omitempty" json:"status,omitempty"` // active, disabled

	// Career the student belongs to (empty for teachers/admins).
	Career string `bson:"career,omitempty" json:"career,omitempty"`

	// PhotoPath is the blob key of the profile photo inside the reserved
	// profile-photos storage area (never part of the repository tree).
	PhotoPath string `bson:"photo_path,omitempty" json:"photo_path,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// User roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleStudent,
		RoleTeacher,
		RoleAdmin,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
