package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialVisibility(t *testing.T) {
	f := NewForm()
	assert.True(t, f.Visible(FieldService))
	assert.True(t, f.Visible(FieldName))
	assert.False(t, f.Visible(FieldPropertyUsage))
	assert.False(t, f.Visible(FieldFacilityName))
}

func TestSupportServiceShowsFacilityFields(t *testing.T) {
	f := NewForm()
	f.SetClassification(FieldService, ServiceSupport)

	assert.True(t, f.Visible(FieldFacilityName))
	assert.True(t, f.Visible(FieldActivityType))
	assert.False(t, f.Visible(FieldPropertyUsage))
	assert.False(t, f.Visible(FieldPropertyType))
}

func TestMarketingServiceShowsPropertyFields(t *testing.T) {
	f := NewForm()
	f.SetClassification(FieldService, ServiceMarketing)

	assert.True(t, f.Visible(FieldPropertyUsage))
	assert.False(t, f.Visible(FieldFacilityName))
	assert.False(t, f.Visible(FieldActivityType))
	assert.False(t, f.Visible(FieldPropertyType), "type hidden until usage chosen")

	f.SetClassification(FieldPropertyUsage, UsageCommercial)
	assert.True(t, f.Visible(FieldPropertyType))
}

func TestServiceSwitchClearsDependentValues(t *testing.T) {
	f := NewForm()
	f.SetClassification(FieldService, ServiceSupport)
	f.Set(FieldFacilityName, "Al Noor Tower")
	f.Set(FieldActivityType, "retail")
	require.Equal(t, "Al Noor Tower", f.Value(FieldFacilityName))

	f.SetClassification(FieldService, ServiceMarketing)

	assert.Empty(t, f.Value(FieldFacilityName))
	assert.Empty(t, f.Value(FieldActivityType))
	assert.True(t, f.Visible(FieldPropertyUsage))
	assert.False(t, f.Visible(FieldFacilityName))
}

func TestUsageSwitchClearsPropertyType(t *testing.T) {
	f := NewForm()
	f.SetClassification(FieldService, ServiceBuy)
	f.SetClassification(FieldPropertyUsage, UsageCommercial)
	f.Set(FieldPropertyType, "showroom")
	require.Equal(t, "showroom", f.Value(FieldPropertyType))

	f.SetClassification(FieldPropertyUsage, UsageResidential)

	assert.Empty(t, f.Value(FieldPropertyType), "a commercial type must not survive a usage switch")
	assert.Equal(t, []string{"apartment", "villa", "duplex", "floor", "land"}, f.Options(FieldPropertyType))
}

func TestSetIgnoresHiddenFields(t *testing.T) {
	f := NewForm()
	f.SetClassification(FieldService, ServiceMarketing)
	f.Set(FieldFacilityName, "smuggled")
	assert.Empty(t, f.Value(FieldFacilityName))
	assert.NotContains(t, f.Values(), FieldFacilityName)
}

func validSupportForm() *Form {
	f := NewForm()
	f.SetClassification(FieldService, ServiceSupport)
	f.Set(FieldFacilityName, "Al Noor Tower")
	f.Set(FieldActivityType, "retail")
	f.Set(FieldName, "Salim")
	f.Set(FieldPhone, "0551234567")
	f.Set(FieldContactMethod, ContactWhatsApp)
	return f
}

func TestValidateHappyPath(t *testing.T) {
	assert.Nil(t, validSupportForm().Validate())
}

func TestValidateFailFastOrder(t *testing.T) {
	f := NewForm()
	verr := f.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, FieldService, verr.Field, "first violation wins")

	f.SetClassification(FieldService, ServiceSupport)
	verr = f.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, FieldFacilityName, verr.Field)
}

func TestValidatePhoneFormats(t *testing.T) {
	for _, phone := range []string{"0551234567", "+966551234567", "966551234567", "551234567"} {
		f := validSupportForm()
		f.Set(FieldPhone, phone)
		assert.Nil(t, f.Validate(), "phone %q should be accepted", phone)
	}
	for _, phone := range []string{"12345", "0661234567", "+15551234567", "05512345678"} {
		f := validSupportForm()
		f.Set(FieldPhone, phone)
		verr := f.Validate()
		require.NotNil(t, verr, "phone %q should be rejected", phone)
		assert.Equal(t, FieldPhone, verr.Field)
	}
}

func TestValidateEmailOptionalButWellFormed(t *testing.T) {
	f := validSupportForm()
	assert.Nil(t, f.Validate(), "email is optional")

	f.Set(FieldEmail, "not-an-email")
	verr := f.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, FieldEmail, verr.Field)

	f.Set(FieldEmail, "salim@example.com")
	assert.Nil(t, f.Validate())
}

func TestValidateContactMethodRequired(t *testing.T) {
	f := validSupportForm()
	f.values[FieldContactMethod] = ""
	verr := f.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, FieldContactMethod, verr.Field)
}

func TestValidatePropertyServiceRequiresUsageAndType(t *testing.T) {
	f := NewForm()
	f.SetClassification(FieldService, ServiceRent)
	f.Set(FieldName, "Huda")
	f.Set(FieldPhone, "0551234567")
	f.Set(FieldContactMethod, ContactPhone)

	verr := f.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, FieldPropertyUsage, verr.Field)

	f.SetClassification(FieldPropertyUsage, UsageResidential)
	verr = f.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, FieldPropertyType, verr.Field)

	f.Set(FieldPropertyType, "villa")
	assert.Nil(t, f.Validate())
}

func TestValuesOnlyIncludesVisibleFields(t *testing.T) {
	f := validSupportForm()
	values := f.Values()
	assert.Contains(t, values, FieldFacilityName)
	assert.NotContains(t, values, FieldPropertyUsage)
}
