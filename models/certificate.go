package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CertificateFields are the seven human-reviewed values of a birth certificate.
type CertificateFields struct {
	FullName          string `bson:"fullName" json:"fullName"`
	DateOfBirth       string `bson:"dateOfBirth" json:"dateOfBirth"`
	PlaceOfBirth      string `bson:"placeOfBirth" json:"placeOfBirth"`
	Gender            string `bson:"gender" json:"gender"`
	FatherName        string `bson:"fatherName" json:"fatherName"`
	MotherName        string `bson:"motherName" json:"motherName"`
	CertificateNumber string `bson:"certificateNumber" json:"certificateNumber"`
}

type Certificate struct {
	ID                bson.ObjectID `bson:"_id,omitempty" json:"id"`
	CertificateFields `bson:",inline"`

	ScanURL string `bson:"scanUrl,omitempty" json:"scanUrl,omitempty"`

	UploadedBy     bson.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedByName string        `bson:"uploadedByName,omitempty" json:"uploadedByName,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DraftExtraction is the unsaved result of running OCR over an upload.
// Any field the patterns could not find is left empty.
type DraftExtraction struct {
	RawText string `json:"rawText"`
	CertificateFields
	ScanURL string `json:"scanUrl,omitempty"`
}
