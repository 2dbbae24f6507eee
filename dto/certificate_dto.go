package dto

import "github.com/quickcert/certbackend/models"

// CertificateDTO carries the reviewed values. Emptiness is checked by the
// certificate service so all missing fields are reported together.
type CertificateDTO struct {
	FullName          string `json:"fullName"`
	DateOfBirth       string `json:"dateOfBirth"`
	PlaceOfBirth      string `json:"placeOfBirth"`
	Gender            string `json:"gender"`
	FatherName        string `json:"fatherName"`
	MotherName        string `json:"motherName"`
	CertificateNumber string `json:"certificateNumber"`
	ScanURL           string `json:"scanUrl,omitempty"`
}

func (d CertificateDTO) Fields() models.CertificateFields {
	return models.CertificateFields{
		FullName:          d.FullName,
		DateOfBirth:       d.DateOfBirth,
		PlaceOfBirth:      d.PlaceOfBirth,
		Gender:            d.Gender,
		FatherName:        d.FatherName,
		MotherName:        d.MotherName,
		CertificateNumber: d.CertificateNumber,
	}
}
