// internal/domain/models/work.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Work entry types stored in the student_works collection.
const (
	WorkTypeFile   = "file"
	WorkTypeFolder = "folder"
)

// Work represents one entry in the student_works collection: either an
// uploaded coursework file or a folder in the repository tree.
//
// Path is the logical path of the entry (no storage-root prefix) and must
// always match the corresponding blob key. Keeping the two in step is the
// job of the repo service; divergence means a broken download link or an
// orphaned record.
type Work struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type   string             `bson:"type" json:"type"` // file, folder
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"` // Case-insensitive for sorting/search
	Path   string             `bson:"path" json:"path"`       // Logical path, matches blob key

	// File fields (zero values for folders)
	Size        int64  `bson:"size,omitempty" json:"size,omitempty"`                 // File size in bytes
	ContentType string `bson:"content_type,omitempty" json:"content_type,omitempty"` // MIME type
	DownloadURL string `bson:"download_url,omitempty" json:"download_url,omitempty"` // Cached blob reference

	// Ownership and classification
	UploadedBy   primitive.ObjectID `bson:"uploaded_by,omitempty" json:"uploaded_by,omitempty"`
	UploaderName string             `bson:"uploader_name,omitempty" json:"uploader_name,omitempty"`
	Career       string             `bson:"career,omitempty" json:"career,omitempty"`
	Subject      string             `bson:"subject,omitempty" json:"subject,omitempty"`
	AcademicYear string             `bson:"academic_year,omitempty" json:"academic_year,omitempty"`

	Comments    []Comment   `bson:"comments" json:"comments"`
	Grade       *Grade      `bson:"grade,omitempty" json:"grade,omitempty"`
	Permissions Permissions `bson:"permissions" json:"permissions"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsFolder returns true if the entry is a folder record.
func (w *Work) IsFolder() bool {
	return w.Type == WorkTypeFolder
}

// Permissions holds the read/write actor lists for an entry.
// Empty lists mean the default role-based policy applies.
type Permissions struct {
	Read  []primitive.ObjectID `bson:"read" json:"read"`
	Write []primitive.ObjectID `bson:"write" json:"write"`
}

// Comment is one teacher or student comment on an uploaded file.
// Comments are append-only: insertion order is chronological order,
// and only the author may edit or delete their own comment.
type Comment struct {
	ID           string             `bson:"id" json:"id"` // uuid
	Text         string             `bson:"text" json:"text"`
	AuthorID     primitive.ObjectID `bson:"author_id" json:"author_id"`
	AuthorEmail  string             `bson:"author_email" json:"author_email"`
	AuthorName   string             `bson:"author_name" json:"author_name"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastModified *time.Time         `bson:"last_modified,omitempty" json:"last_modified,omitempty"`
}

// Grade score bounds. A score of zero means "ungraded".
const (
	MinGradeScore = 0
	MaxGradeScore = 10
)

// Grade is a teacher's grade on an uploaded file. A file holds at most
// one grade; re-grading overwrites the whole subdocument.
type Grade struct {
	Score        int                `bson:"score" json:"score"` // 0-10, 0 = ungraded
	TeacherID    primitive.ObjectID `bson:"teacher_id" json:"teacher_id"`
	TeacherName  string             `bson:"teacher_name" json:"teacher_name"`
	GradedAt     time.Time          `bson:"graded_at" json:"graded_at"`
	LastModified *time.Time         `bson:"last_modified,omitempty" json:"last_modified,omitempty"`
}

// ValidGradeScore checks that a score is within the accepted range.
func ValidGradeScore(score int) bool {
	return score >= MinGradeScore && score <= MaxGradeScore
}
