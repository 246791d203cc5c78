package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleForm struct {
	Email                string `validate:"required,email"`
	Password             string `validate:"required,pwdmin"`
	PasswordConfirmation string `validate:"required,eqfield=Password"`
	Note                 string
}

func TestValidateStruct(t *testing.T) {
	valid := sampleForm{Email: "a@b.co", Password: "secret123", PasswordConfirmation: "secret123"}
	require.NoError(t, ValidateStruct(&valid))

	missing := sampleForm{Password: "secret123", PasswordConfirmation: "secret123"}
	require.Error(t, ValidateStruct(&missing))

	badEmail := valid
	badEmail.Email = "not-an-email"
	require.Error(t, ValidateStruct(&badEmail))

	short := valid
	short.Password = "abc"
	short.PasswordConfirmation = "abc"
	require.Error(t, ValidateStruct(&short))

	mismatch := valid
	mismatch.PasswordConfirmation = "different1"
	require.Error(t, ValidateStruct(&mismatch))
}

func TestValidateStructRejectsNonStruct(t *testing.T) {
	require.Error(t, ValidateStruct("not a struct"))
}
