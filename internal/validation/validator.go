// Пакет validation проверяет входные данные кейсов через go-playground/validator
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"CaseTracker/internal/model"
)

// Validator хранит настроенный экземпляр validator с тегами закрытых перечислений
type Validator struct {
	v *validator.Validate
}

// New регистрирует теги priority, payment_status, project_status, website_type, package
// и использует json-имена полей в ошибках
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return model.Priority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("payment_status", func(fl validator.FieldLevel) bool {
		return model.PaymentStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("project_status", func(fl validator.FieldLevel) bool {
		return model.ProjectStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("website_type", func(fl validator.FieldLevel) bool {
		return model.WebsiteType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("package", func(fl validator.FieldLevel) bool {
		return model.Package(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// CaseInput проверяет данные создания кейса: обязательные тексты, перечисления,
// дату начала и правило «published требует ссылку»
func (v *Validator) CaseInput(in model.CaseInput) error {
	if err := v.v.Struct(in); err != nil {
		return toValidationError(err)
	}
	if strings.TrimSpace(in.ClientName) == "" {
		return model.NewValidationError("client_name", "must not be blank")
	}
	if strings.TrimSpace(in.CaseName) == "" {
		return model.NewValidationError("case_name", "must not be blank")
	}
	if in.StartDate.IsZero() {
		return model.NewValidationError("start_date", "required")
	}
	return model.CheckPublished(in.ProjectStatus, in.WebsiteLink)
}

// StatusUpdate проверяет значения перечислений в частичном обновлении
func (v *Validator) StatusUpdate(u model.StatusUpdate) error {
	if u.Empty() {
		return model.NewValidationError("", "nothing to update")
	}
	if u.PaymentStatus != nil && !u.PaymentStatus.Valid() {
		return model.NewValidationError("payment_status", "must be one of "+joinValues(model.PaymentStatuses))
	}
	if u.ProjectStatus != nil && !u.ProjectStatus.Valid() {
		return model.NewValidationError("project_status", "must be one of "+joinValues(model.ProjectStatuses))
	}
	return nil
}

// toValidationError берёт первую ошибку поля и переводит её в model.ValidationError
func toValidationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return model.NewValidationError("", err.Error())
	}
	fe := ve[0]
	if fe.Tag() == "required" {
		return model.NewValidationError(fe.Field(), "required")
	}
	return model.NewValidationError(fe.Field(), "must be one of "+allowedFor(fe.Tag()))
}

func allowedFor(tag string) string {
	switch tag {
	case "priority":
		return joinValues(model.Priorities)
	case "payment_status":
		return joinValues(model.PaymentStatuses)
	case "project_status":
		return joinValues(model.ProjectStatuses)
	case "website_type":
		return joinValues(model.WebsiteTypes)
	case "package":
		return joinValues(model.Packages)
	}
	return tag
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + string(v) + "'"
	}
	return strings.Join(parts, ", ")
}
