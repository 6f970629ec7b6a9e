package registration

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldLabels = map[string]string{
	"given_name":    "Given name",
	"family_name":   "Family name",
	"date_of_birth": "Date of birth",
	"gender":        "Gender",
}

// normalize trims the free-text fields of in.
func normalize(in Input) Input {
	in.GivenName = strings.TrimSpace(in.GivenName)
	in.FamilyName = strings.TrimSpace(in.FamilyName)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
	in.ExistingPHN = strings.TrimSpace(in.ExistingPHN)
	in.TelephoneResidence = strings.TrimSpace(in.TelephoneResidence)
	in.TelephoneMobile = strings.TrimSpace(in.TelephoneMobile)
	in.NationalID = strings.TrimSpace(in.NationalID)
	return in
}

// Validate returns the problems that prevent in from being submitted at loc,
// in form order. An empty result means the input may be submitted.
func Validate(in Input, loc Location, maxPhotoBytes int) []string {
	var problems []string

	if err := validate.Struct(normalize(in)); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []string{err.Error()}
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if strings.TrimSpace(loc.ID) == "" {
		problems = append(problems, "Operating location is required")
	}

	if maxPhotoBytes <= 0 {
		maxPhotoBytes = DefaultMaxPhotoBytes
	}
	if len(in.Photo) > maxPhotoBytes {
		problems = append(problems, fmt.Sprintf("Profile image must not exceed %s", formatBytes(maxPhotoBytes)))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "datetime":
		return label + " must be a date in YYYY-MM-DD format"
	case "oneof":
		return label + " must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	}
	return label + " is invalid"
}

func formatBytes(n int) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return fmt.Sprintf("%d MiB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
