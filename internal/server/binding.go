package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// bindRequest decodes body into obj and applies its binding tags.
func bindRequest(body []byte, obj any) error {
	if err := binding.JSON.BindBody(body, obj); err != nil {
		return bindingError(err)
	}
	return nil
}

// bindingError turns a decode or validation failure into a 400.
func bindingError(err error) *api.StatusError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return api.ErrBadRequest("Invalid request: " + err.Error())
	}

	fe := verrs[0]
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return api.ErrBadRequest(field + " is required")
	case "min":
		return api.ErrBadRequest(field + " must not be empty")
	}
	return api.ErrBadRequest(fmt.Sprintf("%s failed on the %q rule", field, fe.Tag()))
}

// fieldPath turns "ChatRequest.Messages[0].Role" into "messages[0].role".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
