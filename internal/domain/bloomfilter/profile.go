package bloomfilter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ehr/pprl/internal/domain/idat"
)

// DefaultHashFunctions is the per-field hash count of the default profile.
const DefaultHashFunctions = 15

// FieldSpec is the fixed geometry of one attribute filter.
type FieldSpec struct {
	Name          string `yaml:"name"`
	Length        uint   `yaml:"length"`
	HashFunctions uint   `yaml:"hashFunctions"`
}

// FieldProfile is the ordered layout of a record filter. Every site of a
// campaign must use the same profile.
type FieldProfile struct {
	Fields []FieldSpec `yaml:"fields"`
}

// DefaultFieldProfile covers all IDAT attributes, 3550 bits in total.
func DefaultFieldProfile() FieldProfile {
	lengths := map[string]uint{
		idat.FieldFirstName:       500,
		idat.FieldLastName:        500,
		idat.FieldBirthday:        250,
		idat.FieldSex:             50,
		idat.FieldStreet:          500,
		idat.FieldZipCode:         250,
		idat.FieldCity:            500,
		idat.FieldCountry:         500,
		idat.FieldInsuranceNumber: 500,
	}
	p := FieldProfile{Fields: make([]FieldSpec, 0, len(idat.Fields))}
	for _, name := range idat.Fields {
		p.Fields = append(p.Fields, FieldSpec{Name: name, Length: lengths[name], HashFunctions: DefaultHashFunctions})
	}
	return p
}

// LoadFieldProfile reads a YAML profile from path.
func LoadFieldProfile(path string) (FieldProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FieldProfile{}, fmt.Errorf("read field profile: %w", err)
	}
	return ParseFieldProfile(data)
}

// ParseFieldProfile decodes and validates a YAML profile. A field without
// hashFunctions gets DefaultHashFunctions.
func ParseFieldProfile(data []byte) (FieldProfile, error) {
	var p FieldProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return FieldProfile{}, fmt.Errorf("%w: field profile: %v", ErrInvalidParameter, err)
	}
	for i := range p.Fields {
		if p.Fields[i].HashFunctions == 0 {
			p.Fields[i].HashFunctions = DefaultHashFunctions
		}
	}
	if err := p.Validate(); err != nil {
		return FieldProfile{}, err
	}
	return p, nil
}

// Validate checks for known, unique attribute names and positive geometry.
func (p FieldProfile) Validate() error {
	if len(p.Fields) == 0 {
		return fmt.Errorf("%w: field profile has no fields", ErrInvalidParameter)
	}
	seen := make(map[string]bool, len(p.Fields))
	for _, f := range p.Fields {
		if !idat.IsField(f.Name) {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidParameter, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidParameter, f.Name)
		}
		seen[f.Name] = true
		if f.Length == 0 || f.HashFunctions == 0 {
			return fmt.Errorf("%w: field %q needs positive length and hashFunctions", ErrInvalidParameter, f.Name)
		}
	}
	return nil
}

// TotalLength is the record filter length produced by this profile.
func (p FieldProfile) TotalLength() uint {
	var n uint
	for _, f := range p.Fields {
		n += f.Length
	}
	return n
}
