package userstore

import (
	"errors"
	"testing"

	"github.com/fie-storage/fiestorage/internal/domain/models"
	"github.com/fie-storage/fiestorage/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FirstName: "Ana",
		LastName:  "Torres",
		Email:     "Ana.Torres@Example.edu",
		Role:      models.RoleStudent,
		Career:    "Computer Science",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ID.IsZero() {
		t.Error("Create() did not assign ID")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
	if created.Status != "active" {
		t.Errorf("Status = %q, want active", created.Status)
	}
	// Email normalized to lowercase on the way in.
	if created.Email != "ana.torres@example.edu" {
		t.Errorf("Email = %q, want lowercase", created.Email)
	}
	if created.FullNameCI == "" {
		t.Error("Create() did not set FullNameCI")
	}
}

func TestStore_Create_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{
		FirstName: "Bad",
		LastName:  "Role",
		Email:     "bad@example.edu",
		Role:      "superuser",
	})
	if err == nil {
		t.Fatal("Create() with invalid role should fail")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := models.User{
		FirstName: "First",
		LastName:  "User",
		Email:     "dup@example.edu",
		Role:      models.RoleStudent,
	}
	if _, err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Same email, different case: still a duplicate after normalization.
	u.Email = "DUP@example.edu"
	_, err := store.Create(ctx, u)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FirstName: "Ana",
		LastName:  "Torres",
		Email:     "ana@example.edu",
		Role:      models.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.GetByEmail(ctx, "  ANA@example.edu ")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() ID = %v, want %v", got.ID, created.ID)
	}

	if _, err := store.GetByEmail(ctx, "missing@example.edu"); err != mongo.ErrNoDocuments {
		t.Errorf("GetByEmail() missing error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FirstName: "Ana",
		LastName:  "Torres",
		Email:     "ana@example.edu",
		Role:      models.RoleStudent,
		Career:    "Math",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	last := "Torres García"
	career := "Physics"
	if err := store.Update(ctx, created.ID, UpdateInput{
		LastName: &last,
		Career:   &career,
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastName != "Torres García" {
		t.Errorf("LastName = %q", got.LastName)
	}
	if got.Career != "Physics" {
		t.Errorf("Career = %q", got.Career)
	}
	// Folded display name follows the name parts.
	if got.FullNameCI != "ana torres garcia" {
		t.Errorf("FullNameCI = %q, want %q", got.FullNameCI, "ana torres garcia")
	}
	// Untouched fields stay untouched.
	if got.FirstName != "Ana" || got.Email != "ana@example.edu" {
		t.Errorf("unrelated fields changed: %+v", got)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FirstName: "To",
		LastName:  "Delete",
		Email:     "delete@example.edu",
		Role:      models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := store.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Delete() count = %d, want 1", n)
	}

	n, err = store.Delete(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Delete() missing count = %d, want 0", n)
	}
}

func TestStore_EmailExistsForOther(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := store.Create(ctx, models.User{
		FirstName: "A", LastName: "A", Email: "a@example.edu", Role: models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	b, err := store.Create(ctx, models.User{
		FirstName: "B", LastName: "B", Email: "b@example.edu", Role: models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	exists, err := store.EmailExistsForOther(ctx, "a@example.edu", b.ID)
	if err != nil {
		t.Fatalf("EmailExistsForOther() error = %v", err)
	}
	if !exists {
		t.Error("should report a@example.edu as taken by another user")
	}

	exists, err = store.EmailExistsForOther(ctx, "a@example.edu", a.ID)
	if err != nil {
		t.Fatalf("EmailExistsForOther() error = %v", err)
	}
	if exists {
		t.Error("a user's own email should not count as taken")
	}
}

func TestStore_ListByCareer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mk := func(first, email, role, career string) {
		t.Helper()
		if _, err := store.Create(ctx, models.User{
			FirstName: first, LastName: "X", Email: email, Role: role, Career: career,
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	mk("Zoe", "zoe@example.edu", models.RoleStudent, "CS")
	mk("Ana", "ana@example.edu", models.RoleStudent, "CS")
	mk("Eve", "eve@example.edu", models.RoleStudent, "Math")
	// A teacher attached to the career must not list as a student.
	mk("Teo", "teo@example.edu", models.RoleTeacher, "CS")

	students, err := store.ListByCareer(ctx, "CS")
	if err != nil {
		t.Fatalf("ListByCareer() error = %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("ListByCareer() = %d students, want 2", len(students))
	}
	// Sorted by folded display name.
	if students[0].FirstName != "Ana" || students[1].FirstName != "Zoe" {
		t.Errorf("order = %s, %s; want Ana, Zoe", students[0].FirstName, students[1].FirstName)
	}
}

func TestStore_CountActiveAdmins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	n, err := store.CountActiveAdmins(ctx)
	if err != nil {
		t.Fatalf("CountActiveAdmins() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountActiveAdmins() = %d, want 0", n)
	}

	if _, err := store.Create(ctx, models.User{
		FirstName: "Root", LastName: "Admin", Email: "admin@example.edu", Role: models.RoleAdmin,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err = store.CountActiveAdmins(ctx)
	if err != nil {
		t.Fatalf("CountActiveAdmins() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountActiveAdmins() = %d, want 1", n)
	}
}
