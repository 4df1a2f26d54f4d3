package httpapi

import (
	"errors"
	"net/http"

	"github.com/lukasbauer/voxlate/internal/extract"
	"github.com/lukasbauer/voxlate/internal/llm"
	"github.com/lukasbauer/voxlate/internal/pipeline"
	"github.com/lukasbauer/voxlate/internal/tts"
)

// Error kinds reported to clients in the "kind" field.
const (
	kindMissingInput        = "missing_input"
	kindDecode              = "decode"
	kindExtraction          = "extraction"
	kindUnsupportedFormat   = "unsupported_format"
	kindUnsupportedLanguage = "unsupported_language"
	kindTranslation         = "translation"
	kindSynthesis           = "synthesis"
	kindTooLarge            = "too_large"
	kindInvalidRequest      = "invalid_request"
	kindInternal            = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classifyError maps a pipeline error to an HTTP status and error kind.
func classifyError(err error) (int, string) {
	var (
		decodeErr  *extract.DecodeError
		extractErr *extract.ExtractionError
		trErr      *llm.TranslationError
		synthErr   *tts.SynthesisError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		return http.StatusBadRequest, kindMissingInput
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusBadRequest, kindUnsupportedFormat
	case errors.Is(err, tts.ErrUnsupportedLanguage):
		return http.StatusBadRequest, kindUnsupportedLanguage
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, kindTooLarge
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity, kindDecode
	case errors.As(err, &extractErr):
		return http.StatusUnprocessableEntity, kindExtraction
	case errors.As(err, &trErr):
		return http.StatusBadGateway, kindTranslation
	case errors.As(err, &synthErr):
		return http.StatusBadGateway, kindSynthesis
	}
	return http.StatusInternalServerError, kindInternal
}

// writeError reports err to the client. Unexpected errors also go to Sentry;
// pipeline failures were already captured by the pipeline.
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status, kind := classifyError(err)
	if kind == kindInternal {
		captureError(req, err, "httpapi: unexpected error")
	}
	r.logger.Printf("httpapi: %s %s: %s: %v", req.Method, req.URL.Path, kind, err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}
