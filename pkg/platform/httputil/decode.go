package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
)

// Normalizable requests trim and canonicalize themselves before validation.
type Normalizable interface {
	Normalize()
}

type Validatable interface {
	Validate() error
}

// PrepareRequest normalizes then validates req when it supports either step.
// Plain errors from Validate become validation_failed.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	v, ok := req.(Validatable)
	if !ok {
		return nil
	}
	err := v.Validate()
	var domainErr *dErrors.Error
	if err != nil && !errors.As(err, &domainErr) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}

// decodeBody reads exactly one JSON value from r.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return dErrors.New(dErrors.CodeBadRequest, "request body required")
	case errors.As(err, &tooLarge):
		return dErrors.New(dErrors.CodeBadRequest, "request body too large")
	case err != nil:
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "request body must hold a single JSON object")
	}
	return nil
}

// DecodeAndPrepare decodes the body into T and runs PrepareRequest on it. On
// failure it has already written the error response.
//
//	req, ok := httputil.DecodeAndPrepare[SuspendRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req := new(T)
	err := decodeBody(r, req)
	if err == nil {
		err = PrepareRequest(req)
	}
	if err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "rejected request body",
			"error", err,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
