// internal/app/store/activity/store.go
package activity

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event types for repository activity tracking.
const (
	EventUpload        = "upload"         // file uploaded
	EventFolderCreate  = "folder_create"  // folder created
	EventFolderRename  = "folder_rename"  // folder renamed
	EventFolderDelete  = "folder_delete"  // folder and subtree deleted
	EventFileDelete    = "file_delete"    // file deleted
	EventCommentAdd    = "comment_add"    // comment added to a file
	EventCommentUpdate = "comment_update" // comment edited by its author
	EventCommentDelete = "comment_delete" // comment removed by its author
	EventGradeSet      = "grade_set"      // grade set or overwritten
)

// Event represents one repository activity event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	UserName  string             `bson:"user_name"`
	Timestamp time.Time          `bson:"timestamp"`

	// What happened
	EventType string `bson:"event_type"`

	// Context (varies by event type)
	Path    string         `bson:"path,omitempty"`
	Details map[string]any `bson:"details,omitempty"`
}

// Store manages activity events.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activity_events")}
}

// Create records a new activity event.
func (s *Store) Create(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Record inserts an event for the given user, type and repository path.
func (s *Store) Record(ctx context.Context, userID primitive.ObjectID, userName, eventType, path string, details map[string]any) error {
	return s.Create(ctx, Event{
		UserID:    userID,
		UserName:  userName,
		EventType: eventType,
		Path:      path,
		Details:   details,
	})
}

// Recent retrieves the newest events across all users.
func (s *Store) Recent(ctx context.Context, limit int64) ([]Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetByUser retrieves recent events for a user.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetByUserInTimeRange retrieves events for a user within a time range.
func (s *Store) GetByUserInTimeRange(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	filter := bson.M{
		"user_id": userID,
		"timestamp": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByUserInTimeRange counts events of one type for a user in a time range.
func (s *Store) CountByUserInTimeRange(ctx context.Context, userID primitive.ObjectID, eventType string, start, end time.Time) (int64, error) {
	filter := bson.M{
		"user_id":    userID,
		"event_type": eventType,
		"timestamp": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	return s.c.CountDocuments(ctx, filter)
}

// Prune deletes events older than the cutoff. Used by the background
// retention job; returns the number of deleted events.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"timestamp": bson.M{"$lt": olderThan},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
