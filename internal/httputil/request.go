package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"blockdocs/internal/config"
)

// ParseJSON decodes the request body into dest.
// Bodies larger than config.MaxRequestBodyBytes are rejected.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	return parseJSON(w, r, dest, false)
}

// ParseOptionalJSON is ParseJSON for endpoints whose body may be omitted
func ParseOptionalJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	return parseJSON(w, r, dest, true)
}

func parseJSON(w http.ResponseWriter, r *http.Request, dest interface{}, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// QueryBool reads a boolean query parameter; missing or malformed values are false
func QueryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
