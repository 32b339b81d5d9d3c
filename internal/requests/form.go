package requests

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Form field names. The public intake form posts these keys; the engine owns
// which of them are visible for the current classification.
const (
	FieldService       = "service"
	FieldPropertyUsage = "propertyUsage"
	FieldPropertyType  = "propertyType"
	FieldFacilityName  = "facilityName"
	FieldActivityType  = "activityType"
	FieldName          = "name"
	FieldPhone         = "phone"
	FieldEmail         = "email"
	FieldContactMethod = "contactMethod"
	FieldCity          = "city"
	FieldNotes         = "notes"
)

// Service classifications. The first choice on the form; everything below it
// in the decision tree depends on this value.
const (
	ServiceBuy       = "buy"
	ServiceSell      = "sell"
	ServiceRent      = "rent"
	ServiceMarketing = "marketing"
	ServiceSupport   = "support"
)

// Property usage categories.
const (
	UsageResidential = "residential"
	UsageCommercial  = "commercial"
)

// Contact method preferences.
const (
	ContactPhone    = "phone"
	ContactWhatsApp = "whatsapp"
	ContactEmail    = "email"
)

var (
	serviceOptions = []string{ServiceBuy, ServiceSell, ServiceRent, ServiceMarketing, ServiceSupport}
	usageOptions   = []string{UsageResidential, UsageCommercial}
	contactOptions = []string{ContactPhone, ContactWhatsApp, ContactEmail}

	residentialTypes = []string{"apartment", "villa", "duplex", "floor", "land"}
	commercialTypes  = []string{"office", "showroom", "warehouse", "building", "land"}

	// Saudi mobile numbers: 05XXXXXXXX with optional +966/966 country prefix.
	phonePattern = regexp.MustCompile(`^(?:\+?966|0)?5\d{8}$`)
)

// dependentFields are cleared whenever the service classification changes.
var dependentFields = []string{FieldPropertyUsage, FieldPropertyType, FieldFacilityName, FieldActivityType}

// ValidationError reports the first violated rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Form is the dynamic intake form state: a field-value map plus a visibility
// map derived from the classification fields. A dependent field's visibility
// is a pure function of its governing field's current value.
type Form struct {
	values   map[string]string
	validate *validator.Validate
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{
		values:   make(map[string]string),
		validate: validator.New(),
	}
}

// SetClassification updates a governing field (service or propertyUsage),
// recomputes visibility, and clears every dependent value. The reset is
// mandatory: a value chosen under the previous classification is no longer
// semantically valid and must never reach submission.
func (f *Form) SetClassification(field, value string) {
	switch field {
	case FieldService:
		f.values[FieldService] = value
		for _, dep := range dependentFields {
			delete(f.values, dep)
		}
	case FieldPropertyUsage:
		f.values[FieldPropertyUsage] = value
		delete(f.values, FieldPropertyType)
	}
}

// Set stores an ordinary field value. Writes to fields hidden under the
// current classification are dropped, so stale dependent data cannot be
// smuggled past the visibility rules.
func (f *Form) Set(field, value string) {
	if field == FieldService || field == FieldPropertyUsage {
		f.SetClassification(field, value)
		return
	}
	if !f.Visible(field) {
		return
	}
	if value == "" {
		delete(f.values, field)
		return
	}
	f.values[field] = value
}

// Value returns the current value of a field.
func (f *Form) Value(field string) string {
	return f.values[field]
}

// Visible reports whether a field renders under the current classification.
func (f *Form) Visible(field string) bool {
	service := f.values[FieldService]
	switch field {
	case FieldService, FieldName, FieldPhone, FieldEmail, FieldContactMethod, FieldCity, FieldNotes:
		return true
	case FieldFacilityName, FieldActivityType:
		return service == ServiceSupport
	case FieldPropertyUsage:
		return isPropertyService(service)
	case FieldPropertyType:
		return isPropertyService(service) && isValidOption(f.values[FieldPropertyUsage], usageOptions)
	default:
		return false
	}
}

// VisibleFields lists the renderable fields in display order.
func (f *Form) VisibleFields() []string {
	all := []string{
		FieldService, FieldPropertyUsage, FieldPropertyType,
		FieldFacilityName, FieldActivityType,
		FieldName, FieldPhone, FieldEmail, FieldContactMethod, FieldCity, FieldNotes,
	}
	var visible []string
	for _, field := range all {
		if f.Visible(field) {
			visible = append(visible, field)
		}
	}
	return visible
}

// Options returns the selectable values for a choice field. The property
// type set follows the chosen usage category.
func (f *Form) Options(field string) []string {
	switch field {
	case FieldService:
		return serviceOptions
	case FieldPropertyUsage:
		return usageOptions
	case FieldContactMethod:
		return contactOptions
	case FieldPropertyType:
		switch f.values[FieldPropertyUsage] {
		case UsageResidential:
			return residentialTypes
		case UsageCommercial:
			return commercialTypes
		default:
			return nil
		}
	default:
		return nil
	}
}

// Values returns a copy of the currently visible field values, ready for
// submission.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for field, value := range f.values {
		if f.Visible(field) {
			out[field] = value
		}
	}
	return out
}

// Validate checks the form and returns the first violated rule, in a fixed
// order: required fields, phone format, email format, contact preference.
func (f *Form) Validate() *ValidationError {
	service := f.values[FieldService]
	if !isValidOption(service, serviceOptions) {
		return &ValidationError{Field: FieldService, Message: "Please choose a service."}
	}
	if isPropertyService(service) {
		if !isValidOption(f.values[FieldPropertyUsage], usageOptions) {
			return &ValidationError{Field: FieldPropertyUsage, Message: "Please choose the property usage."}
		}
		if !isValidOption(f.values[FieldPropertyType], f.Options(FieldPropertyType)) {
			return &ValidationError{Field: FieldPropertyType, Message: "Please choose the property type."}
		}
	} else {
		if f.values[FieldFacilityName] == "" {
			return &ValidationError{Field: FieldFacilityName, Message: "Please enter the facility name."}
		}
		if f.values[FieldActivityType] == "" {
			return &ValidationError{Field: FieldActivityType, Message: "Please enter the activity type."}
		}
	}
	if f.values[FieldName] == "" {
		return &ValidationError{Field: FieldName, Message: "Please enter your name."}
	}
	phone := f.values[FieldPhone]
	if phone == "" {
		return &ValidationError{Field: FieldPhone, Message: "Please enter your phone number."}
	}
	if !phonePattern.MatchString(phone) {
		return &ValidationError{Field: FieldPhone, Message: "Please enter a valid Saudi mobile number."}
	}
	if email := f.values[FieldEmail]; email != "" {
		if err := f.validate.Var(email, "email"); err != nil {
			return &ValidationError{Field: FieldEmail, Message: "Please enter a valid email address."}
		}
	}
	if !isValidOption(f.values[FieldContactMethod], contactOptions) {
		return &ValidationError{Field: FieldContactMethod, Message: "Please choose how we should contact you."}
	}
	return nil
}

func isPropertyService(service string) bool {
	switch service {
	case ServiceBuy, ServiceSell, ServiceRent, ServiceMarketing:
		return true
	}
	return false
}

func isValidOption(value string, options []string) bool {
	for _, option := range options {
		if value == option {
			return true
		}
	}
	return false
}
