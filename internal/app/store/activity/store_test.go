package activity

import (
	"testing"
	"time"

	"github.com/fie-storage/fiestorage/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	if store == nil {
		t.Fatal("New() returned nil")
	}
}

func TestStore_Create_AutoGeneratesIDAndTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Create(ctx, Event{
		UserID:    userID,
		UserName:  "Ana Torres",
		EventType: EventUpload,
		Path:      "CS/Algorithms/2025-2026/essay.pdf",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("Create() did not assign ID")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("Create() did not set Timestamp")
	}
}

func TestStore_Record(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Record(ctx, userID, "Prof. Ruiz", EventGradeSet, "CS/AI/2025-2026/paper.pdf", map[string]any{
		"score": 9,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].EventType != EventGradeSet {
		t.Errorf("EventType = %q", events[0].EventType)
	}
	if events[0].UserName != "Prof. Ruiz" {
		t.Errorf("UserName = %q", events[0].UserName)
	}
}

func TestStore_Recent_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)
	for i, typ := range []string{EventUpload, EventCommentAdd, EventGradeSet} {
		err := store.Create(ctx, Event{
			UserID:    userID,
			EventType: typ,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	events, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Recent() = %d events, want 2 (limit)", len(events))
	}
	if events[0].EventType != EventGradeSet || events[1].EventType != EventCommentAdd {
		t.Errorf("order = %s, %s; want newest first", events[0].EventType, events[1].EventType)
	}
}

func TestStore_GetByUserInTimeRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	base := time.Now().UTC().Add(-2 * time.Hour)
	for i := 0; i < 4; i++ {
		err := store.Create(ctx, Event{
			UserID:    userID,
			EventType: EventUpload,
			Timestamp: base.Add(time.Duration(i) * 30 * time.Minute),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	events, err := store.GetByUserInTimeRange(ctx, userID, base.Add(20*time.Minute), base.Add(70*time.Minute))
	if err != nil {
		t.Fatalf("GetByUserInTimeRange() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("events in range = %d, want 2", len(events))
	}

	n, err := store.CountByUserInTimeRange(ctx, userID, EventUpload, base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("CountByUserInTimeRange() error = %v", err)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
}
