package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const scoreRequestSchema = `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1, "maxLength": 8000}
  }
}`

var errInvalidBody = errors.New("request body does not match schema")

type requestValidator struct {
	schema *gojsonschema.Schema
}

func newRequestValidator() *requestValidator {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(scoreRequestSchema))
	if err != nil {
		panic(fmt.Sprintf("server: compile score request schema: %v", err))
	}
	return &requestValidator{schema: schema}
}

// decode reads body, checks it against the score request schema and
// returns the parsed request.
func (v *requestValidator) decode(body io.Reader) (scoreRequest, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return scoreRequest{}, err
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return scoreRequest{}, err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return scoreRequest{}, fmt.Errorf("%w: %s", errInvalidBody, strings.Join(msgs, "; "))
	}

	var req scoreRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return scoreRequest{}, err
	}
	return req, nil
}
