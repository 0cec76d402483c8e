// Package works provides storage for student work metadata.
//
// One document per repository entry (file or folder), keyed by logical
// path. Path-range queries use an exclusive upper bound derived from the
// prefix (repopath.PrefixSuccessor), never a sentinel character.
package works

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/fie-storage/fiestorage/internal/app/repopath"
	"github.com/fie-storage/fiestorage/internal/app/system/txn"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CollectionName is the MongoDB collection for student work records.
const CollectionName = "student_works"

// ErrCommentNotFound is returned when a comment does not exist on the
// work or the caller is not its author.
var ErrCommentNotFound = errors.New("comment not found or not owned by caller")

// Store provides access to the student_works collection.
type Store struct {
	c      *mongo.Collection
	db     *mongo.Database
	logger *zap.Logger
}

// New creates a new works store.
func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		c:      db.Collection(CollectionName),
		db:     db,
		logger: logger,
	}
}

// CreateInput contains the input for creating a file record.
type CreateInput struct {
	Name         string
	Path         string
	Size         int64
	ContentType  string
	DownloadURL  string
	UploadedBy   primitive.ObjectID
	UploaderName string
	Career       string
	Subject      string
	AcademicYear string
}

// CreateOrReplace writes the file record for a path, replacing any
// record already there. A re-submitted file is a fresh submission: the
// superseded record's comments and grade do not carry over. The zero ID
// on the replacement keeps the existing _id in place, so references to
// the record survive a re-upload.
func (s *Store) CreateOrReplace(ctx context.Context, input CreateInput) (*models.Work, error) {
	now := time.Now().UTC()
	work := models.Work{
		Type:         models.WorkTypeFile,
		Name:         input.Name,
		NameCI:       text.Fold(input.Name),
		Path:         input.Path,
		Size:         input.Size,
		ContentType:  input.ContentType,
		DownloadURL:  input.DownloadURL,
		UploadedBy:   input.UploadedBy,
		UploaderName: input.UploaderName,
		Career:       input.Career,
		Subject:      input.Subject,
		AcademicYear: input.AcademicYear,
		Comments:     []models.Comment{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	opts := options.FindOneAndReplace().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out models.Work
	if err := s.c.FindOneAndReplace(ctx, bson.M{"path": input.Path}, work, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FolderInput contains the input for creating a folder record.
type FolderInput struct {
	Name        string
	Path        string
	Permissions models.Permissions
}

// CreateFolder creates a new folder record.
func (s *Store) CreateFolder(ctx context.Context, input FolderInput) (*models.Work, error) {
	now := time.Now().UTC()
	work := models.Work{
		ID:          primitive.NewObjectID(),
		Type:        models.WorkTypeFolder,
		Name:        input.Name,
		NameCI:      text.Fold(input.Name),
		Path:        input.Path,
		Comments:    []models.Comment{},
		Permissions: input.Permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, work); err != nil {
		return nil, err
	}

	return &work, nil
}

// GetByID retrieves a work record by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Work, error) {
	var work models.Work
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&work); err != nil {
		return nil, err
	}
	return &work, nil
}

// GetByPath retrieves the record with exactly the given path.
// Returns (nil, nil) when no record exists: the blob tree is the source
// of truth for existence, so a missing record is a degraded state, not
// an error.
func (s *Store) GetByPath(ctx context.Context, path string) (*models.Work, error) {
	var work models.Work
	err := s.c.FindOne(ctx, bson.M{"path": path}).Decode(&work)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &work, nil
}

// GetByPaths fetches the records for all given paths in one query.
// Paths with no record are simply absent from the result map.
func (s *Store) GetByPaths(ctx context.Context, paths []string) (map[string]*models.Work, error) {
	out := make(map[string]*models.Work, len(paths))
	if len(paths) == 0 {
		return out, nil
	}

	cursor, err := s.c.Find(ctx, bson.M{"path": bson.M{"$in": paths}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.Work
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	for i := range records {
		out[records[i].Path] = &records[i]
	}
	return out, nil
}

// prefixFilter builds the filter matching the record at prefix itself and
// every record strictly below it.
func prefixFilter(prefix string) bson.M {
	if prefix == "" {
		return bson.M{}
	}
	descendants := bson.M{"$gte": prefix + "/"}
	if upper := repopath.PrefixSuccessor(prefix + "/"); upper != "" {
		descendants = bson.M{"$gte": prefix + "/", "$lt": upper}
	}
	return bson.M{"$or": []bson.M{
		{"path": prefix},
		{"path": descendants},
	}}
}

// ListByPathPrefix returns every record at or under the given prefix,
// ordered by path.
func (s *Store) ListByPathPrefix(ctx context.Context, prefix string) ([]models.Work, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "path", Value: 1}})
	cursor, err := s.c.Find(ctx, prefixFilter(prefix), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.Work
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListFolders returns every folder record at or under the given prefix.
func (s *Store) ListFolders(ctx context.Context, prefix string) ([]models.Work, error) {
	filter := prefixFilter(prefix)
	filter["type"] = models.WorkTypeFolder

	findOpts := options.Find().SetSort(bson.D{{Key: "path", Value: 1}})
	cursor, err := s.c.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.Work
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PathMove is one path rewrite inside a batch update.
type PathMove struct {
	ID   primitive.ObjectID
	Path string
	Name *string // set for the renamed folder's own record
}

// BatchUpdatePaths rewrites record paths (and names, where given) as a
// single bulk write inside a transaction, so an interrupted rename never
// leaves the metadata tree half-rewritten. On deployments without
// transaction support the bulk write still executes as one command.
func (s *Store) BatchUpdatePaths(ctx context.Context, moves []PathMove) error {
	if len(moves) == 0 {
		return nil
	}

	now := time.Now().UTC()
	wm := make([]mongo.WriteModel, 0, len(moves))
	for _, m := range moves {
		set := bson.M{"path": m.Path, "updated_at": now}
		if m.Name != nil {
			set["name"] = *m.Name
			set["name_ci"] = text.Fold(*m.Name)
		}
		wm = append(wm, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{"$set": set}))
	}

	return txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		_, err := s.c.BulkWrite(ctx, wm)
		return err
	})
}

// Delete deletes a work record.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// BatchDelete deletes all given records as a single bulk write.
func (s *Store) BatchDelete(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}

	wm := make([]mongo.WriteModel, 0, len(ids))
	for _, id := range ids {
		wm = append(wm, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": id}))
	}

	return txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		_, err := s.c.BulkWrite(ctx, wm)
		return err
	})
}

// AddComment appends a comment to a file record. Comments are append-only;
// insertion order is chronological order.
func (s *Store) AddComment(ctx context.Context, workID primitive.ObjectID, comment models.Comment) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": workID}, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateComment rewrites the text of a comment. Only the author's own
// comment matches; anyone else gets ErrCommentNotFound.
func (s *Store) UpdateComment(ctx context.Context, workID primitive.ObjectID, commentID string, authorID primitive.ObjectID, body string) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":      workID,
		"comments": bson.M{"$elemMatch": bson.M{"id": commentID, "author_id": authorID}},
	}
	update := bson.M{"$set": bson.M{
		"comments.$.text":          body,
		"comments.$.last_modified": now,
		"updated_at":               now,
	}}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// DeleteComment removes a comment. Only the author's own comment matches;
// anyone else gets ErrCommentNotFound and the comment remains.
func (s *Store) DeleteComment(ctx context.Context, workID primitive.ObjectID, commentID string, authorID primitive.ObjectID) error {
	// No updated_at bump here: ModifiedCount must reflect the $pull alone
	// so a non-matching author is detectable.
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": workID}, bson.M{
		"$pull": bson.M{"comments": bson.M{"id": commentID, "author_id": authorID}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 || res.ModifiedCount == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// SetGrade sets the grade on a file record, replacing any previous grade.
// A file never holds more than one grade.
func (s *Store) SetGrade(ctx context.Context, workID primitive.ObjectID, grade models.Grade) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": workID}, bson.M{
		"$set": bson.M{"grade": grade, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
