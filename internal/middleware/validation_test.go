package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test struct with validation tags
type TestRequest struct {
	Username string `json:"username" validate:"required,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("each missing field is reported under its JSON name", prop.ForAll(
		func(includeUsername, includeEmail, includePassword bool) bool {
			reqMap := make(map[string]interface{})
			if includeUsername {
				reqMap["username"] = "alice"
			}
			if includeEmail {
				reqMap["email"] = "alice@example.com"
			}
			if includePassword {
				reqMap["password"] = "s3cret-pass"
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(reqBody))

			var testReq TestRequest
			errs := FormatValidationErrors(DecodeAndValidate(req, &testReq))

			for field, present := range map[string]bool{
				"username": includeUsername,
				"email":    includeEmail,
				"password": includePassword,
			} {
				_, reported := errs[field]
				if reported == present {
					return false
				}
			}
			return true
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrorsMessages(t *testing.T) {
	body := `{"username":"` + strings.Repeat("x", 21) + `","email":"nope","password":"short"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var testReq TestRequest
	errs := FormatValidationErrors(DecodeAndValidate(req, &testReq))

	assert.Equal(t, []string{"Ensure this field has no more than 20 characters."}, errs["username"])
	assert.Equal(t, []string{"Enter a valid email address."}, errs["email"])
	assert.Equal(t, []string{"Ensure this field has at least 8 characters."}, errs["password"])
}

func TestDecodeAndValidateMalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":`))

	var testReq TestRequest
	err := DecodeAndValidate(req, &testReq)
	require.Error(t, err)

	var bodyErr *BodyError
	assert.ErrorAs(t, err, &bodyErr)
	assert.Empty(t, FormatValidationErrors(err))

	w := httptest.NewRecorder()
	RespondWithBindError(w, err)
	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), `"detail":"JSON parse error`)
}

func TestRespondWithBindErrorFieldErrors(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{}`))

	var testReq TestRequest
	err := DecodeAndValidate(req, &testReq)

	w := httptest.NewRecorder()
	RespondWithBindError(w, err)
	assert.Equal(t, 400, w.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"This field is required."}, body["email"])
}
