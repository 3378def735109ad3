package idat

import (
	"strings"
	"unicode"
)

// Attribute names, in the default record layout order.
const (
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldBirthday        = "birthday"
	FieldSex             = "sex"
	FieldStreet          = "street"
	FieldZipCode         = "zipCode"
	FieldCity            = "city"
	FieldCountry         = "country"
	FieldInsuranceNumber = "insuranceNumber"
)

// Fields lists every attribute name in the default layout order.
var Fields = []string{
	FieldFirstName,
	FieldLastName,
	FieldBirthday,
	FieldSex,
	FieldStreet,
	FieldZipCode,
	FieldCity,
	FieldCountry,
	FieldInsuranceNumber,
}

// Idat holds the identifying attributes of one subject at one site.
type Idat struct {
	MedicID         string `json:"medicId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Birthday        string `json:"birthday"`
	Sex             string `json:"sex"`
	Street          string `json:"street"`
	ZipCode         string `json:"zipCode"`
	City            string `json:"city"`
	Country         string `json:"country"`
	InsuranceNumber string `json:"insuranceNumber"`
}

// Field returns the value of the named attribute.
func (i *Idat) Field(name string) (string, bool) {
	switch name {
	case FieldFirstName:
		return i.FirstName, true
	case FieldLastName:
		return i.LastName, true
	case FieldBirthday:
		return i.Birthday, true
	case FieldSex:
		return i.Sex, true
	case FieldStreet:
		return i.Street, true
	case FieldZipCode:
		return i.ZipCode, true
	case FieldCity:
		return i.City, true
	case FieldCountry:
		return i.Country, true
	case FieldInsuranceNumber:
		return i.InsuranceNumber, true
	}
	return "", false
}

// IsField reports whether name is a known attribute.
func IsField(name string) bool {
	_, ok := (&Idat{}).Field(name)
	return ok
}

// Normalize returns a copy with every attribute trimmed, lower-cased and with
// inner whitespace runs collapsed to one space. MedicID is left untouched.
func (i *Idat) Normalize() *Idat {
	return &Idat{
		MedicID:         i.MedicID,
		FirstName:       normalize(i.FirstName),
		LastName:        normalize(i.LastName),
		Birthday:        normalize(i.Birthday),
		Sex:             normalize(i.Sex),
		Street:          normalize(i.Street),
		ZipCode:         normalize(i.ZipCode),
		City:            normalize(i.City),
		Country:         normalize(i.Country),
		InsuranceNumber: normalize(i.InsuranceNumber),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " "))
}
