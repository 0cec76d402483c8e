// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/fie-storage/fiestorage/internal/app/blob"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. It serves as
// the central place to store all database clients and backend connections
// that your application needs.
//
// The Shutdown hook is responsible for closing these connections gracefully
// when the application terminates.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Blob holds the raw object store (MinIO or local disk). It backs
	// both the repository tree and the profile photo area.
	Blob blob.Store

	// Tree is the repository tree view over Blob: folder markers,
	// prefix walks, copy-then-delete renames.
	Tree *blob.Tree
}
