package ocr

import (
	"regexp"
	"strings"

	"github.com/quickcert/certbackend/models"
)

// Value character classes. Names stop at digits, colons and line breaks.
const (
	nameValue   = `[\p{L}][\p{L} \t'’.\-]*`
	dateValue   = `[0-9][0-9/\-]*`
	wordValue   = `[\p{L}]+`
	numberValue = `[A-Za-z0-9][A-Za-z0-9\-]*`
)

// Field pulls one labelled value out of OCR text. Fields are independent of
// each other; adding a label format means adding a Field.
type Field struct {
	Name    string
	Label   string
	Pattern *regexp.Regexp
	Assign  func(f *models.CertificateFields, value string)
}

// NewField compiles a case-insensitive "<label><delimiter><value>" pattern.
// The delimiter is an optional colon or dash; the value may sit on the line
// after the label.
func NewField(name, label, value string, assign func(*models.CertificateFields, string)) Field {
	return Field{
		Name:    name,
		Label:   label,
		Pattern: regexp.MustCompile(`(?i)\b(?:` + label + `)\b\.?[ \t]*[:\-]?\s*(` + value + `)`),
		Assign:  assign,
	}
}

func (f Field) find(text string) string {
	m := f.Pattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// DefaultFields are the seven birth-certificate labels. Label words must share
// a line, so a heading cannot pair with a word from the line below it.
func DefaultFields() []Field {
	return []Field{
		NewField("fullName", `full[ \t]+name`, nameValue,
			func(f *models.CertificateFields, v string) { f.FullName = v }),
		NewField("dateOfBirth", `date[ \t]+of[ \t]+birth`, dateValue,
			func(f *models.CertificateFields, v string) { f.DateOfBirth = v }),
		NewField("placeOfBirth", `place[ \t]+of[ \t]+birth`, nameValue,
			func(f *models.CertificateFields, v string) { f.PlaceOfBirth = v }),
		NewField("gender", `gender`, wordValue,
			func(f *models.CertificateFields, v string) { f.Gender = v }),
		NewField("fatherName", `father['’]?s[ \t]+name`, nameValue,
			func(f *models.CertificateFields, v string) { f.FatherName = v }),
		NewField("motherName", `mother['’]?s[ \t]+name`, nameValue,
			func(f *models.CertificateFields, v string) { f.MotherName = v }),
		NewField("certificateNumber", `certificate[ \t]+(?:number|no)`, numberValue,
			func(f *models.CertificateFields, v string) { f.CertificateNumber = v }),
	}
}

// labelMatcher finds any known label, so a value captured on a line that
// also carries the next label can be cut short.
func labelMatcher(fields []Field) *regexp.Regexp {
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		labels = append(labels, `(?:`+f.Label+`)`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(labels, "|") + `)\b`)
}

var spaceRun = regexp.MustCompile(`[ \t]+`)

func cleanValue(value string, labels *regexp.Regexp) string {
	if loc := labels.FindStringIndex(value); loc != nil {
		value = value[:loc[0]]
	}
	value = spaceRun.ReplaceAllString(value, " ")
	return strings.Trim(value, " \t.-'’")
}
