package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"familypoints/internal/validation"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON request body into dst. Problems are reported as
// validation errors so they surface as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.ValidationError{Field: "body", Message: "request body is required"}
		}
		return validation.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}

// queryInt64 parses an optional integer query parameter, returning def when absent
func queryInt64(r *http.Request, name string, def int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, validation.ValidationError{Field: name, Message: "must be an integer"}
	}
	return v, nil
}

// flexInt accepts a JSON number or a string holding one
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s is not an integer", data)
	}
	*f = flexInt(v)
	return nil
}

// flexString accepts a JSON string or a number, keeping its text
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%s is not a string or number", data)
	}
	*f = flexString(n.String())
	return nil
}
