// Package repotest provides in-memory stand-ins for the MongoDB repositories
// with the same uniqueness and not-found behaviour.
package repotest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Identities struct {
	mu    sync.Mutex
	items map[models.Role][]models.Identity
}

func NewIdentities() *Identities {
	return &Identities{items: map[models.Role][]models.Identity{}}
}

func (s *Identities) Create(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items[identity.Role] {
		if existing.Email == identity.Email {
			return repository.ErrDuplicateKey
		}
	}
	if identity.ID.IsZero() {
		identity.ID = bson.NewObjectID()
	}
	s.items[identity.Role] = append(s.items[identity.Role], *identity)
	return nil
}

func (s *Identities) FindByEmail(_ context.Context, role models.Role, email string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items[role] {
		if existing.Email == email {
			found := existing
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Identities) FindByID(_ context.Context, role models.Role, id bson.ObjectID) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items[role] {
		if existing.ID == id {
			found := existing
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Identities) UpdatePassword(_ context.Context, role models.Role, id bson.ObjectID, hash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items[role] {
		if s.items[role][i].ID == id {
			s.items[role][i].PasswordHash = hash
			s.items[role][i].UpdatedAt = updatedAt
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Identities) Delete(_ context.Context, role models.Role, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[role]
	for i, existing := range items {
		if existing.ID == id {
			s.items[role] = slices.Delete(items, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Identities) List(_ context.Context, role models.Role) ([]models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Identity, 0, len(s.items[role]))
	for _, existing := range s.items[role] {
		existing.PasswordHash = ""
		out = append(out, existing)
	}
	return out, nil
}

func (s *Identities) officerName(id bson.ObjectID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items[models.RoleOfficer] {
		if existing.ID == id {
			return existing.FullName
		}
	}
	return ""
}

type Certificates struct {
	mu         sync.Mutex
	items      []models.Certificate
	identities *Identities
}

// NewCertificates resolves uploader names through identities, which may be nil.
func NewCertificates(identities *Identities) *Certificates {
	return &Certificates{identities: identities}
}

func (s *Certificates) Create(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.CertificateNumber == cert.CertificateNumber {
			return repository.ErrDuplicateKey
		}
	}
	if cert.ID.IsZero() {
		cert.ID = bson.NewObjectID()
	}
	s.items = append(s.items, *cert)
	return nil
}

func (s *Certificates) FindByID(_ context.Context, id bson.ObjectID) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.ID == id {
			found := s.annotate(existing)
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Certificates) List(_ context.Context, owner *bson.ObjectID) ([]models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Certificate, 0, len(s.items))
	for _, existing := range s.items {
		if owner != nil && existing.UploadedBy != *owner {
			continue
		}
		out = append(out, s.annotate(existing))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Certificates) Replace(_ context.Context, id bson.ObjectID, fields models.CertificateFields, updatedAt time.Time) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, existing := range s.items {
		if existing.ID == id {
			idx = i
			continue
		}
		if existing.CertificateNumber == fields.CertificateNumber {
			return nil, repository.ErrDuplicateKey
		}
	}
	if idx < 0 {
		return nil, repository.ErrNotFound
	}
	s.items[idx].CertificateFields = fields
	s.items[idx].UpdatedAt = updatedAt
	updated := s.annotate(s.items[idx])
	return &updated, nil
}

func (s *Certificates) annotate(cert models.Certificate) models.Certificate {
	if s.identities != nil {
		cert.UploadedByName = s.identities.officerName(cert.UploadedBy)
	}
	return cert
}
