package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dkhalitov/bracket-engine/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	js, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, jsonResponse{"error": message})
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, err.Error())
}

// serviceErrorResponse maps the engine's error taxonomy onto HTTP statuses.
// Partial successes are reported as 200 with a warning attached: the
// primary result stands.
func serviceErrorResponse(w http.ResponseWriter, logger *slog.Logger, err error, partialPayload interface{}) {
	switch services.Classify(err) {
	case services.ClassValidation:
		errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case services.ClassConflict:
		errorResponse(w, http.StatusConflict, err.Error())
	case services.ClassState:
		errorResponse(w, http.StatusConflict, err.Error())
	case services.ClassNotFound:
		errorResponse(w, http.StatusNotFound, err.Error())
	case services.ClassPartial:
		writeJSON(w, http.StatusOK, jsonResponse{"result": partialPayload, "warning": err.Error()})
	default:
		logger.Error("internal server error", slog.Any("error", err))
		errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
	}
}

func urlParamInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return value, nil
}

// withConflictRetry re-runs a command once on a version conflict. Safe
// because every engine command recomputes from freshly read state.
func withConflictRetry(fn func() error) error {
	err := fn()
	if services.Classify(err) == services.ClassConflict {
		err = fn()
	}
	return err
}
