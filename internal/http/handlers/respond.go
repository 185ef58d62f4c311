package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/accounthub/internal/actorctx"
	"github.com/geocoder89/accounthub/internal/apperr"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message   string              `json:"message"`
	Code      string              `json:"code"`
	RequestID string              `json:"requestId,omitempty"`
	Errors    []apperr.FieldError `json:"errors,omitempty"`
	Trace     string              `json:"trace,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, fields []apperr.FieldError) {
	ctx.AbortWithStatusJSON(status, APIError{
		Message:   message,
		Code:      code,
		RequestID: requestIDFrom(ctx),
		Errors:    fields,
	})
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, apperr.KindNotFound.String(), message, nil)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, apperr.KindConflict.String(), message, nil)
}

// RespondInternal logs err and answers 500. The error text is only echoed
// back when diagnostics are on for this request.
func RespondInternal(ctx *gin.Context, message string, err error) {
	reqID := requestIDFrom(ctx)
	userID, _ := actorctx.UserIDFrom(ctx.Request.Context())

	slog.Default().ErrorContext(ctx.Request.Context(), message,
		"request_id", reqID,
		"route", ctx.FullPath(),
		"user_id", userID,
		"err", err,
	)

	body := APIError{
		Message:   message,
		Code:      apperr.KindInternal.String(),
		RequestID: reqID,
	}

	if err != nil && ctx.GetBool(middlewares.CtxDiagnostics) {
		body.Trace = err.Error()
	}

	ctx.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

// RespondErr answers with the status carried by err's apperr kind.
func RespondErr(ctx *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind == apperr.KindInternal {
		RespondInternal(ctx, "Internal server error", err)
		return
	}

	RespondError(ctx, e.Kind.Status(), e.Kind.String(), e.Message, e.Fields)
}
