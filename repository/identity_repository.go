package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quickcert/certbackend/database"
	"github.com/quickcert/certbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// IdentityRepository keeps one collection per role.
type IdentityRepository struct {
	cols map[models.Role]*mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{cols: map[models.Role]*mongo.Collection{
		models.RoleAdmin:   db.Collection(database.AdminsCollection),
		models.RoleOfficer: db.Collection(database.OfficersCollection),
	}}
}

func (r *IdentityRepository) col(role models.Role) (*mongo.Collection, error) {
	col, ok := r.cols[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	return col, nil
}

// Create inserts the identity and fills in its ID. A taken email surfaces
// as ErrDuplicateKey from the unique index.
func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	col, err := r.col(identity.Role)
	if err != nil {
		return err
	}
	if identity.ID.IsZero() {
		identity.ID = bson.NewObjectID()
	}
	_, err = col.InsertOne(ctx, identity)
	return wrapWrite(err)
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, role models.Role, email string) (*models.Identity, error) {
	col, err := r.col(role)
	if err != nil {
		return nil, err
	}
	var identity models.Identity
	if err := col.FindOne(ctx, bson.M{"email": email}).Decode(&identity); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	identity.Role = role
	return &identity, nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, role models.Role, id bson.ObjectID) (*models.Identity, error) {
	col, err := r.col(role)
	if err != nil {
		return nil, err
	}
	var identity models.Identity
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&identity); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	identity.Role = role
	return &identity, nil
}

func (r *IdentityRepository) UpdatePassword(ctx context.Context, role models.Role, id bson.ObjectID, hash string, updatedAt time.Time) error {
	col, err := r.col(role)
	if err != nil {
		return err
	}
	res, err := col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"passwordHash": hash,
			"updatedAt":    updatedAt,
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *IdentityRepository) Delete(ctx context.Context, role models.Role, id bson.ObjectID) error {
	col, err := r.col(role)
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every identity of the role without password hashes.
func (r *IdentityRepository) List(ctx context.Context, role models.Role) ([]models.Identity, error) {
	col, err := r.col(role)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetProjection(bson.M{"passwordHash": 0}).
		SetSort(bson.D{{Key: "fullName", Value: 1}, {Key: "email", Value: 1}})

	cursor, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Identity, 0)
	for cursor.Next(ctx) {
		var identity models.Identity
		if err := cursor.Decode(&identity); err != nil {
			return nil, err
		}
		identity.Role = role
		items = append(items, identity)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
