package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStruct runs the validate struct tags on v. The first failing field
// is reported as a configuration error whose field detail is the dotted path
// of the field, e.g. "funcVpc.cidr".
func ValidateStruct(v any) error {
	return validateAt("", v)
}

// ValidateProject checks the project header and every trigger block. Trigger
// failures carry an indexed path such as "triggers[1].status". The function
// block is left to function.Validate since remove runs skip it.
func ValidateProject(p *Project) error {
	if p == nil {
		return engine.NewConfigurationError("project", "a project declaration is required")
	}
	header := Project{Region: p.Region, ProjectID: p.ProjectID}
	if err := validateAt("", &header); err != nil {
		return err
	}
	for i := range p.Triggers {
		if err := validateAt(fmt.Sprintf("triggers[%d].", i), &p.Triggers[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAt(prefix string, v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		cfgErr := engine.NewConfigurationError("", "invalid configuration")
		cfgErr.Err = err
		return cfgErr
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	field = prefix + field
	return engine.NewConfigurationError(field, describeFieldError(field, fe))
}

func describeFieldError(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
