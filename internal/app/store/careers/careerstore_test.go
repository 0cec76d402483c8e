package careers

import (
	"errors"
	"testing"

	"github.com/fie-storage/fiestorage/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	career, err := store.Create(ctx, "Computer Science")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if career.ID.IsZero() {
		t.Error("Create() did not assign ID")
	}
	if career.NameCI != "computer science" {
		t.Errorf("NameCI = %q", career.NameCI)
	}
	if career.Subjects == nil || len(career.Subjects) != 0 {
		t.Errorf("Subjects = %v, want empty slice", career.Subjects)
	}
}

func TestStore_Create_DuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, "Mathematics"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// Case-insensitive uniqueness.
	if _, err := store.Create(ctx, "MATHEMATICS"); !errors.Is(err, ErrDuplicateCareer) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicateCareer", err)
	}
}

func TestStore_GetByName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, "Physics")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.GetByName(ctx, "physics")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByName() ID = %v, want %v", got.ID, created.ID)
	}

	if _, err := store.GetByName(ctx, "Alchemy"); err != mongo.ErrNoDocuments {
		t.Errorf("GetByName() missing error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_ListAll_Sorted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"Zoology", "Architecture", "Medicine"} {
		if _, err := store.Create(ctx, name); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	careers, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(careers) != 3 {
		t.Fatalf("ListAll() = %d careers, want 3", len(careers))
	}
	want := []string{"Architecture", "Medicine", "Zoology"}
	for i, w := range want {
		if careers[i].Name != w {
			t.Errorf("careers[%d] = %q, want %q", i, careers[i].Name, w)
		}
	}
}

func TestStore_Subjects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	career, err := store.Create(ctx, "CS")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	subject, err := store.AddSubject(ctx, career.ID, "Algorithms")
	if err != nil {
		t.Fatalf("AddSubject() error = %v", err)
	}
	if subject.ID == "" {
		t.Error("AddSubject() did not assign ID")
	}

	if _, err := store.AddSubject(ctx, career.ID, "Algorithms"); !errors.Is(err, ErrDuplicateSubject) {
		t.Errorf("AddSubject() duplicate error = %v, want ErrDuplicateSubject", err)
	}

	if err := store.RenameSubject(ctx, career.ID, subject.ID, "Advanced Algorithms"); err != nil {
		t.Fatalf("RenameSubject() error = %v", err)
	}
	if err := store.RenameSubject(ctx, career.ID, "nope", "X"); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("RenameSubject() missing error = %v, want ErrSubjectNotFound", err)
	}

	got, err := store.GetByID(ctx, career.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(got.Subjects) != 1 || got.Subjects[0].Name != "Advanced Algorithms" {
		t.Errorf("Subjects = %+v", got.Subjects)
	}

	if err := store.RemoveSubject(ctx, career.ID, subject.ID); err != nil {
		t.Fatalf("RemoveSubject() error = %v", err)
	}
	if err := store.RemoveSubject(ctx, career.ID, subject.ID); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("RemoveSubject() repeat error = %v, want ErrSubjectNotFound", err)
	}

	got, err = store.GetByID(ctx, career.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(got.Subjects) != 0 {
		t.Errorf("Subjects = %+v, want empty", got.Subjects)
	}
}

func TestStore_Rename(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	career, err := store.Create(ctx, "Old Name")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Rename(ctx, career.ID, "New Name"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	got, err := store.GetByName(ctx, "new name")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.ID != career.ID {
		t.Errorf("renamed career not findable by new name")
	}
}
