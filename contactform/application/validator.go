package application

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"contact-gateway/contactform/domain"

	"github.com/go-playground/validator/v10"
)

var (
	personNameRe = regexp.MustCompile(`^[\p{L}\p{M}\s'’-]+$`)
	phoneRe      = regexp.MustCompile(`^\+?[\d\s().-]+$`)
	// algo com cara de tag: <b>, </div>, <script src=...>, comentários
	htmlTagRe = regexp.MustCompile(`</?[a-zA-Z][^<>]*>|<!--`)
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// Validator aplica as regras estruturais do payload.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// erros reportados com o nome JSON do campo (o que o front conhece)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personNameRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "intlphone", func(fl validator.FieldLevel) bool {
		return validPhone(fl.Field().String())
	})
	mustRegister(v, "nohtml", func(fl validator.FieldLevel) bool {
		return !htmlTagRe.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Validate normaliza o payload e devolve todos os campos inválidos de uma vez.
// Em caso de erro o retorno é sempre *domain.ValidationError.
func (val *Validator) Validate(p domain.SubmissionPayload) (domain.SubmissionPayload, error) {
	n := Normalize(p)

	err := val.v.Struct(n)
	if err == nil {
		return n, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.SubmissionPayload{}, fmt.Errorf("validate submission: %w", err)
	}

	out := &domain.ValidationError{Fields: make([]domain.FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, domain.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return domain.SubmissionPayload{}, out
}

// Normalize remove espaços das pontas e coloca o email em minúsculas.
// Honeypot e token ficam intactos: qualquer valor no honeypot conta.
func Normalize(p domain.SubmissionPayload) domain.SubmissionPayload {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	p.County = strings.TrimSpace(p.County)
	p.City = strings.TrimSpace(p.City)
	p.PropertyType = strings.TrimSpace(p.PropertyType)
	p.Message = strings.TrimSpace(p.Message)
	return p
}

func validPhone(s string) bool {
	if !phoneRe.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "personname":
		return "may only contain letters, spaces, hyphens and apostrophes"
	case "intlphone":
		return "must be a valid phone number"
	case "nohtml":
		return "must not contain HTML tags"
	default:
		return "is invalid"
	}
}
