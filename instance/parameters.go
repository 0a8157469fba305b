package instance

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/docker/docker/pkg/namesgenerator"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidParameters is returned when parameters fail validation.
	ErrInvalidParameters = errors.New("invalid instance parameters")

	// ErrMalformedMetadata is returned when a container's metadata cannot be decoded.
	ErrMalformedMetadata = errors.New("malformed instance metadata")
)

// DefaultPort is the port offered when the caller does not choose one.
const DefaultPort uint16 = 8080

// Parameters are fixed when an instance is created.
type Parameters struct {
	Name                   string          `validate:"required,containername"`
	WorkloadVersion        *semver.Version `validate:"required"`
	Port                   uint16          `validate:"required"`
	AuthenticationRequired bool
	TLS                    *TLSMaterial
}

// TLSEnabled reports whether TLS material is attached.
func (p Parameters) TLSEnabled() bool {
	return p.TLS != nil
}

// Authentication renders the authentication requirement as shown to operators.
func (p Parameters) Authentication() string {
	if p.AuthenticationRequired {
		return "required"
	}
	return "optional"
}

// TLSStatus renders TLS presence as shown to operators.
func (p Parameters) TLSStatus() string {
	if p.TLSEnabled() {
		return "enabled"
	}
	return "disabled"
}

var containerNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func parametersValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("containername", func(fl validator.FieldLevel) bool {
			return containerNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the parameters, including the TLS pair when present.
func (p Parameters) Validate() error {
	if err := parametersValidator().Struct(p); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			fields := make([]string, 0, len(fieldErrors))
			for _, fe := range fieldErrors {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidParameters, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}

	if p.TLS != nil {
		if err := p.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GenerateName returns a random name such as "focused_turing".
func GenerateName() string {
	return namesgenerator.GetRandomName(0)
}
