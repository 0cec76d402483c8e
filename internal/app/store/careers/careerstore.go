// internal/app/store/careers/careerstore.go
package careers

import (
	"context"
	"errors"
	"time"

	"github.com/fie-storage/fiestorage/internal/app/system/normalize"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateCareer is returned when a career with the same name
	// (case-insensitive) already exists.
	ErrDuplicateCareer = errors.New("a career with this name already exists")

	// ErrDuplicateSubject is returned when the career already holds a
	// subject with the same name.
	ErrDuplicateSubject = errors.New("a subject with this name already exists in this career")

	// ErrSubjectNotFound is returned when a subject ID does not exist on
	// the career.
	ErrSubjectNotFound = errors.New("subject not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("careers")}
}

// Create inserts a new career with no subjects.
func (s *Store) Create(ctx context.Context, name string) (*models.Career, error) {
	now := time.Now().UTC()
	career := models.Career{
		ID:        primitive.NewObjectID(),
		Name:      normalize.Name(name),
		NameCI:    text.Fold(name),
		Subjects:  []models.Subject{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, career); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateCareer
		}
		return nil, err
	}
	return &career, nil
}

// GetByID loads a career by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Career, error) {
	var career models.Career
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&career); err != nil {
		return nil, err
	}
	return &career, nil
}

// GetByName looks up a career by name, case-insensitive.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByName(ctx context.Context, name string) (*models.Career, error) {
	var career models.Career
	if err := s.c.FindOne(ctx, bson.M{"name_ci": text.Fold(name)}).Decode(&career); err != nil {
		return nil, err
	}
	return &career, nil
}

// ListAll returns every career sorted by name.
func (s *Store) ListAll(ctx context.Context) ([]models.Career, error) {
	opts := options.Find().SetSort(bson.M{"name_ci": 1})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var careers []models.Career
	if err := cur.All(ctx, &careers); err != nil {
		return nil, err
	}
	return careers, nil
}

// Rename changes a career's name. The repository tree rename that keeps
// storage paths in step is the caller's responsibility.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string) error {
	name = normalize.Name(name)
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"updated_at": time.Now().UTC(),
	}})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateCareer
	}
	return err
}

// Delete removes a career by ID.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// AddSubject appends a subject to a career and returns it.
func (s *Store) AddSubject(ctx context.Context, careerID primitive.ObjectID, name string) (models.Subject, error) {
	name = normalize.Name(name)

	career, err := s.GetByID(ctx, careerID)
	if err != nil {
		return models.Subject{}, err
	}
	if _, ok := career.SubjectByName(name); ok {
		return models.Subject{}, ErrDuplicateSubject
	}

	subject := models.Subject{
		ID:   uuid.NewString(),
		Name: name,
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": careerID}, bson.M{
		"$push": bson.M{"subjects": subject},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return models.Subject{}, err
	}
	if res.MatchedCount == 0 {
		return models.Subject{}, mongo.ErrNoDocuments
	}
	return subject, nil
}

// RenameSubject changes one subject's name in place.
func (s *Store) RenameSubject(ctx context.Context, careerID primitive.ObjectID, subjectID, name string) error {
	name = normalize.Name(name)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": careerID, "subjects.id": subjectID},
		bson.M{"$set": bson.M{
			"subjects.$.name": name,
			"updated_at":      time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// RemoveSubject pulls a subject out of a career.
func (s *Store) RemoveSubject(ctx context.Context, careerID primitive.ObjectID, subjectID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": careerID},
		bson.M{
			"$pull": bson.M{"subjects": bson.M{"id": subjectID}},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	if res.ModifiedCount == 0 {
		return ErrSubjectNotFound
	}
	return nil
}
