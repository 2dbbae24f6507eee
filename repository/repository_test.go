package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/quickcert/certbackend/database"
	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/utils"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/crypto/bcrypt"
)

// setupTestDB starts MongoDB in Docker and returns a database with indexes
// in place. Set TEST_INTEGRATION to run.
func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	client, err := database.Connect(ctx, uri)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	db := client.Database("quickcert_test")
	if err := database.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("EnsureIndexes() error: %v", err)
	}
	return db
}

func newCert(owner bson.ObjectID, number string, createdAt time.Time) *models.Certificate {
	return &models.Certificate{
		CertificateFields: models.CertificateFields{
			FullName:          "Amina Okafor",
			DateOfBirth:       "12/03/2019",
			PlaceOfBirth:      "Lagos",
			Gender:            "Female",
			FatherName:        "Chinedu Okafor",
			MotherName:        "Ngozi Okafor",
			CertificateNumber: number,
		},
		UploadedBy: owner,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestIdentityRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewIdentityRepository(db)

	officer := &models.Identity{Email: "ada@registry.gov", PasswordHash: "hash", Role: models.RoleOfficer, FullName: "Ada Obi"}
	if err := repo.Create(ctx, officer); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	dup := &models.Identity{Email: "ada@registry.gov", PasswordHash: "hash", Role: models.RoleOfficer}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	admin := &models.Identity{Email: "ada@registry.gov", PasswordHash: "hash", Role: models.RoleAdmin}
	if err := repo.Create(ctx, admin); err != nil {
		t.Fatalf("same email as admin should be allowed: %v", err)
	}

	found, err := repo.FindByEmail(ctx, models.RoleOfficer, "ada@registry.gov")
	if err != nil || found.ID != officer.ID || found.PasswordHash != "hash" {
		t.Fatalf("FindByEmail() = %+v, %v", found, err)
	}
	if _, err := repo.FindByEmail(ctx, models.RoleOfficer, "nobody@registry.gov"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	items, err := repo.List(ctx, models.RoleOfficer)
	if err != nil || len(items) != 1 || items[0].PasswordHash != "" {
		t.Fatalf("List() = %+v, %v", items, err)
	}

	if err := repo.UpdatePassword(ctx, models.RoleOfficer, officer.ID, "new-hash", time.Now()); err != nil {
		t.Fatalf("UpdatePassword() error: %v", err)
	}
	byID, err := repo.FindByID(ctx, models.RoleOfficer, officer.ID)
	if err != nil || byID.PasswordHash != "new-hash" {
		t.Fatalf("FindByID() = %+v, %v", byID, err)
	}
	if _, err := repo.FindByID(ctx, models.RoleAdmin, officer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound in admin pool, got %v", err)
	}

	if err := repo.Delete(ctx, models.RoleOfficer, officer.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := repo.Delete(ctx, models.RoleOfficer, officer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete(): %v", err)
	}
}

func TestCertificateRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	identities := NewIdentityRepository(db)
	certs := NewCertificateRepository(db)

	officer := &models.Identity{Email: "ada@registry.gov", PasswordHash: "hash", Role: models.RoleOfficer, FullName: "Ada Obi"}
	if err := identities.Create(ctx, officer); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	other := bson.NewObjectID()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range []*models.Certificate{
		newCert(officer.ID, "BC-1", base),
		newCert(officer.ID, "BC-2", base.Add(time.Minute)),
		newCert(other, "BC-3", base.Add(2*time.Minute)),
	} {
		if err := certs.Create(ctx, c); err != nil {
			t.Fatalf("Create(%d) error: %v", i, err)
		}
	}

	mine, err := certs.List(ctx, &officer.ID)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(mine) != 2 || mine[0].CertificateNumber != "BC-2" || mine[0].UploadedByName != "Ada Obi" {
		t.Fatalf("unexpected owner list: %+v", mine)
	}

	all, err := certs.List(ctx, nil)
	if err != nil || len(all) != 3 || all[0].CertificateNumber != "BC-3" || all[0].UploadedByName != "" {
		t.Fatalf("unexpected full list: %+v, %v", all, err)
	}

	fields := mine[1].CertificateFields
	fields.FullName = "Amina G. Okafor"
	updated, err := certs.Replace(ctx, mine[1].ID, fields, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	if updated.FullName != "Amina G. Okafor" || updated.UploadedBy != officer.ID || !updated.CreatedAt.Equal(base) {
		t.Fatalf("unexpected replace result: %+v", updated)
	}

	fields.CertificateNumber = "BC-3"
	if _, err := certs.Replace(ctx, mine[1].ID, fields, base); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := certs.Replace(ctx, bson.NewObjectID(), mine[0].CertificateFields, base); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := certs.FindByID(ctx, bson.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentDuplicateInsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	certs := NewCertificateRepository(db)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = certs.Create(ctx, newCert(bson.NewObjectID(), "BC-RACE", time.Now()))
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrDuplicateKey):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one insert to win, got %d", ok)
	}
}

func TestSeedAdminUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	admins := db.Collection(database.AdminsCollection)
	repo := NewIdentityRepository(db)

	if err := utils.SeedAdminUser(ctx, admins, "Root@Registry.gov", "first-pw", bcrypt.MinCost); err != nil {
		t.Fatalf("SeedAdminUser() error: %v", err)
	}
	if err := utils.SeedAdminUser(ctx, admins, "root@registry.gov", "second-pw", bcrypt.MinCost); err != nil {
		t.Fatalf("second SeedAdminUser() error: %v", err)
	}

	admin, err := repo.FindByEmail(ctx, models.RoleAdmin, "root@registry.gov")
	if err != nil {
		t.Fatalf("FindByEmail() error: %v", err)
	}
	if err := utils.CheckPassword(admin.PasswordHash, "first-pw"); err != nil {
		t.Fatalf("existing admin was overwritten: %v", err)
	}
}
