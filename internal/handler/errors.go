package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/builder"
	"github.com/ibnmalik/lms-admin/internal/courseapi"
	"github.com/ibnmalik/lms-admin/internal/exam"
	"github.com/ibnmalik/lms-admin/internal/response"
	"github.com/ibnmalik/lms-admin/internal/service"
	"github.com/rs/zerolog"
)

// failFor writes the error response matching err. Unknown errors are logged
// and reported as internal.
func failFor(c *gin.Context, log zerolog.Logger, err error) {
	var (
		formErr *service.FormErrors
		gateErr *service.ExamGateError
		examErr exam.ValidationErrors
		apiErr  *courseapi.APIError
	)

	switch {
	case errors.As(err, &formErr):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, formErr.Fields)
	case errors.As(err, &gateErr):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrExamInvalid, gateErr.Fields())
	case errors.As(err, &examErr):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, examErr.Fields())
	case errors.As(err, &apiErr):
		if apiErr.Status == http.StatusNotFound {
			response.FailWithMessages(c, http.StatusNotFound, response.ErrNotFound, apiErr.Messages)
			return
		}
		response.FailWithMessages(c, http.StatusBadGateway, response.ErrUpstream, apiErr.UserMessages())

	case errors.Is(err, service.ErrFormNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrFormNotFound)
	case errors.Is(err, service.ErrFormClosed):
		response.Fail(c, http.StatusGone, response.ErrFormClosed)
	case errors.Is(err, service.ErrSubmitInProgress):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInProgress)
	case errors.Is(err, service.ErrRestorePending):
		response.Fail(c, http.StatusConflict, response.ErrRestorePending)
	case errors.Is(err, service.ErrNoRestoreOffer):
		response.Fail(c, http.StatusConflict, response.ErrNoRestoreOffer)
	case errors.Is(err, service.ErrImageTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, service.ErrUnsupportedImage):
		response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)

	case errors.Is(err, builder.ErrNotEditing):
		response.Fail(c, http.StatusConflict, response.ErrNotEditing)
	case errors.Is(err, builder.ErrAlreadyEditing):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyEditing)
	case errors.Is(err, builder.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.Is(err, builder.ErrNoPendingDelete):
		response.Fail(c, http.StatusConflict, response.ErrNoPendingDelete)
	case errors.Is(err, builder.ErrInvalidExamType), errors.Is(err, exam.ErrInvalidType):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	case errors.Is(err, exam.ErrQuestionNotFound), errors.Is(err, exam.ErrOptionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)

	case errors.Is(err, courseapi.ErrUnavailable):
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		response.FailWithMessages(c, status, response.ErrUpstream, []string{courseapi.GenericFailure})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
