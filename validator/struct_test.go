package validator

import (
	"testing"

	validatorengine "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golangid/obsbot/candihelper"
)

type payload struct {
	Project string   `validate:"required"`
	Arch    string   `validate:"oneof=x86_64 aarch64"`
	Tags    []string `validate:"dive,min=2"`
}

func TestValidateStruct(t *testing.T) {
	err := Validate(payload{Project: "openSUSE:Factory", Arch: "x86_64", Tags: []string{"ok"}})
	assert.NoError(t, err)

	err = Validate(payload{Arch: "s390", Tags: []string{"x"}})
	require.Error(t, err)

	var mErr candihelper.MultiError
	require.ErrorAs(t, err, &mErr)
	msgs := mErr.ToMap()
	assert.Equal(t, "failed on 'required' rule", msgs["project"])
	assert.Equal(t, "failed on 'oneof=x86_64 aarch64' rule", msgs["arch"])
	assert.Equal(t, "failed on 'min=2' rule", msgs["tags[0]"])
}

func TestSetCoreStructValidatorOption(t *testing.T) {
	v := NewStructValidator(SetCoreStructValidatorOption(func(ve *validatorengine.Validate) {
		_ = ve.RegisterValidation("scope", func(fl validatorengine.FieldLevel) bool {
			return fl.Field().String() == "opensuse" || fl.Field().String() == "suse"
		})
	}))

	type scoped struct {
		Scope string `validate:"scope"`
	}
	assert.NoError(t, v.ValidateStruct(scoped{Scope: "suse"}))
	assert.Error(t, v.ValidateStruct(scoped{Scope: "fedora"}))
}
