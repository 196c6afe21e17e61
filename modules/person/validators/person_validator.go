package validators

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/pkg/constants"
)

// scalarRules maps scalar field names to validation tags applied to the
// submitted value.
var scalarRules = map[string]string{
	"FirstName":      "max=100",
	"MiddleName":     "max=100",
	"LastName":       "required,max=100",
	"Rate":           "max=50",
	"Title":          "max=100",
	"DateOfBirth":    "omitempty,datetime=2006-01-02",
	"Remarks":        "max=2000",
	"Division":       "max=100",
	"Department":     "max=100",
	"Command":        "max=100",
	"Supervisor":     "max=100",
	"WorkRemarks":    "max=2000",
	"ContactRemarks": "max=2000",
}

// PersonValidator checks submitted field values. Scalars are validated
// against per-field tag rules; collection entries against their struct
// tags.
type PersonValidator struct {
	validate *validator.Validate
}

func NewPersonValidator() *PersonValidator {
	return &PersonValidator{validate: constants.Validate}
}

func (v *PersonValidator) ValidateVariance(ctx context.Context, variance person.Variance) error {
	switch variance.Kind {
	case person.KindScalar:
		rule, ok := scalarRules[variance.Field]
		if !ok {
			return nil
		}
		return v.validate.VarCtx(ctx, variance.New, rule)
	case person.KindCollection:
		return v.validateCollection(ctx, variance)
	default:
		return errors.Errorf("field %q has unknown kind", variance.Field)
	}
}

func (v *PersonValidator) validateCollection(ctx context.Context, variance person.Variance) error {
	switch entries := variance.New.(type) {
	case []person.EmailAddress:
		for _, e := range entries {
			if err := v.validate.StructCtx(ctx, e); err != nil {
				return err
			}
		}
	case []person.PhoneNumber:
		for _, n := range entries {
			if err := v.validate.StructCtx(ctx, n); err != nil {
				return err
			}
		}
	case []person.PhysicalAddress:
		for _, a := range entries {
			if err := v.validate.StructCtx(ctx, a); err != nil {
				return err
			}
		}
	}
	return nil
}
