// internal/domain/models/career.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Career represents one degree program. Careers form the top level of the
// repository tree; their subjects form the second level. Both are managed
// by administrators.
type Career struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"name_ci"` // Case-insensitive for sorting/search
	Subjects  []Subject          `bson:"subjects" json:"subjects"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Subject is one course within a career.
type Subject struct {
	ID   string `bson:"id" json:"id"` // uuid
	Name string `bson:"name" json:"name"`
}

// SubjectByName returns the subject with the given name, if present.
func (c *Career) SubjectByName(name string) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.Name == name {
			return s, true
		}
	}
	return Subject{}, false
}
