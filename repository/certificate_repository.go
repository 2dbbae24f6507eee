package repository

import (
	"context"
	"time"

	"github.com/quickcert/certbackend/database"
	"github.com/quickcert/certbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type CertificateRepository struct {
	col *mongo.Collection
}

func NewCertificateRepository(db *mongo.Database) *CertificateRepository {
	return &CertificateRepository{col: db.Collection(database.CertificatesCollection)}
}

// Create relies on the unique certificateNumber index: of two concurrent
// inserts with the same number exactly one gets ErrDuplicateKey.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID.IsZero() {
		cert.ID = bson.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, cert)
	return wrapWrite(err)
}

func (r *CertificateRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Certificate, error) {
	items, err := r.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// List returns certificates newest first, annotated with the uploading
// officer's name. A nil owner lists every certificate.
func (r *CertificateRepository) List(ctx context.Context, owner *bson.ObjectID) ([]models.Certificate, error) {
	filter := bson.M{}
	if owner != nil {
		filter["uploadedBy"] = *owner
	}
	return r.aggregate(ctx, filter)
}

// Replace overwrites the seven reviewed fields. uploadedBy and createdAt are
// never touched.
func (r *CertificateRepository) Replace(ctx context.Context, id bson.ObjectID, fields models.CertificateFields, updatedAt time.Time) (*models.Certificate, error) {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"fullName":          fields.FullName,
			"dateOfBirth":       fields.DateOfBirth,
			"placeOfBirth":      fields.PlaceOfBirth,
			"gender":            fields.Gender,
			"fatherName":        fields.FatherName,
			"motherName":        fields.MotherName,
			"certificateNumber": fields.CertificateNumber,
			"updatedAt":         updatedAt,
		},
	})
	if err != nil {
		return nil, wrapWrite(err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *CertificateRepository) aggregate(ctx context.Context, match bson.M) ([]models.Certificate, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         database.OfficersCollection,
			"localField":   "uploadedBy",
			"foreignField": "_id",
			"as":           "officer",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"uploadedByName": bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$officer.fullName", 0}}, ""}},
		}}},
		{{Key: "$project", Value: bson.M{"officer": 0}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Certificate, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
