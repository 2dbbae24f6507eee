package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/repository"
	"github.com/quickcert/certbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CertificateStore interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Certificate, error)
	List(ctx context.Context, owner *bson.ObjectID) ([]models.Certificate, error)
	Replace(ctx context.Context, id bson.ObjectID, fields models.CertificateFields, updatedAt time.Time) (*models.Certificate, error)
}

type CertificateService struct {
	store CertificateStore
	now   func() time.Time

	// scanBase is the scan archive's public URL prefix. Empty means archiving
	// is off and client-supplied scan URLs are dropped.
	scanBase string
}

func NewCertificateService(store CertificateStore, scanBaseURL string) *CertificateService {
	return &CertificateService{
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
		scanBase: scanBaseURL,
	}
}

// normalizeFields trims every value and reports the ones left empty.
func normalizeFields(f models.CertificateFields) (models.CertificateFields, error) {
	values := []struct {
		name string
		v    *string
	}{
		{"fullName", &f.FullName},
		{"dateOfBirth", &f.DateOfBirth},
		{"placeOfBirth", &f.PlaceOfBirth},
		{"gender", &f.Gender},
		{"fatherName", &f.FatherName},
		{"motherName", &f.MotherName},
		{"certificateNumber", &f.CertificateNumber},
	}

	var missing []string
	for _, field := range values {
		*field.v = strings.TrimSpace(*field.v)
		if *field.v == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return f, validationErr("%s required", strings.Join(missing, ", "))
	}
	return f, nil
}

// scanURLFor accepts only a URL of a scan archived for owner.
func (s *CertificateService) scanURLFor(owner bson.ObjectID, scanURL string) (string, error) {
	scanURL = strings.TrimSpace(scanURL)
	if scanURL == "" || s.scanBase == "" {
		return "", nil
	}
	name, ok := strings.CutPrefix(scanURL, utils.ScanURLPrefix(s.scanBase, owner.Hex()))
	if !ok || name == "" || strings.ContainsAny(name, "/\\?#%") || strings.Contains(name, "..") {
		return "", validationErr("scanUrl is not an archived scan of yours")
	}
	return scanURL, nil
}

func ownerID(p models.Principal) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(p.ID)
	if err != nil {
		return bson.ObjectID{}, &InvalidTokenError{Cause: errors.New("token subject is not a valid id")}
	}
	return oid, nil
}

// Create stores a reviewed certificate owned by the calling officer.
func (s *CertificateService) Create(ctx context.Context, p models.Principal, fields models.CertificateFields, scanURL string) (*models.Certificate, error) {
	if p.Role != models.RoleOfficer {
		return nil, ErrForbidden
	}
	owner, err := ownerID(p)
	if err != nil {
		return nil, err
	}
	fields, err = normalizeFields(fields)
	if err != nil {
		return nil, err
	}
	scanURL, err = s.scanURLFor(owner, scanURL)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cert := &models.Certificate{
		CertificateFields: fields,
		ScanURL:           scanURL,
		UploadedBy:        owner,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, cert); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateCertificateNumber
		}
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	return cert, nil
}

// ListFor returns every certificate to admins and only their own to
// officers, newest first.
func (s *CertificateService) ListFor(ctx context.Context, p models.Principal) ([]models.Certificate, error) {
	var owner *bson.ObjectID
	switch p.Role {
	case models.RoleAdmin:
	case models.RoleOfficer:
		oid, err := ownerID(p)
		if err != nil {
			return nil, err
		}
		owner = &oid
	default:
		return nil, ErrForbidden
	}

	items, err := s.store.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return items, nil
}

// Get applies the same visibility as ListFor to a single certificate.
func (s *CertificateService) Get(ctx context.Context, p models.Principal, id string) (*models.Certificate, error) {
	cert, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(p, cert) {
		return nil, ErrForbidden
	}
	return cert, nil
}

// Update replaces the seven reviewed fields. Only the uploading officer or
// an admin may do so.
func (s *CertificateService) Update(ctx context.Context, p models.Principal, id string, fields models.CertificateFields) (*models.Certificate, error) {
	cert, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(p, cert) {
		return nil, ErrForbidden
	}
	fields, err = normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Replace(ctx, cert.ID, fields, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, ErrDuplicateCertificateNumber
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update certificate: %w", err)
	}
	return updated, nil
}

func (s *CertificateService) find(ctx context.Context, id string) (*models.Certificate, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	cert, err := s.store.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return cert, nil
}

func canAccess(p models.Principal, cert *models.Certificate) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleOfficer:
		return cert.UploadedBy.Hex() == p.ID
	}
	return false
}
