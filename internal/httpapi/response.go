package httpapi

import (
	"errors"
	"net/http"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/repository"
	"github.com/gin-gonic/gin"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

const codeNotFound = "NOT_FOUND"

func RespondError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorEnvelope{Error: err.Error(), Code: codeNotFound})
		return
	}
	pe := app.AsPipelineError(err)
	env := ErrorEnvelope{Error: pe.Message, Code: string(pe.Code)}
	if len(pe.Details) > 0 {
		env.Details = pe.Details
	}
	c.JSON(pe.Code.HTTPStatus(), env)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
