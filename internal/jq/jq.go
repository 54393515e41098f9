package jq

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/itchyny/gojq"
)

// ExtractFile runs a jq query against the JSON document stored at filePath.
func ExtractFile(filePath string, jqQuery string) ([]byte, error) {
	jsonContent, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return Extract(jsonContent, jqQuery)
}

// Extract runs a jq query against a JSON document and returns the first
// result re-encoded as JSON.
func Extract(jsonContent []byte, jqQuery string) ([]byte, error) {
	if jqQuery == "" {
		return nil, errors.New("jq query is empty")
	}

	query, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid jq query %q: %w", jqQuery, err)
	}

	var jsonData any
	if err := json.Unmarshal(jsonContent, &jsonData); err != nil {
		return nil, err
	}

	iter := query.Run(jsonData)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("jq query %q produced no result", jqQuery)
	}
	if err, ok := v.(error); ok {
		var halt *gojq.HaltError
		if errors.As(err, &halt) && halt.Value() == nil {
			return nil, fmt.Errorf("jq query %q produced no result", jqQuery)
		}
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("jq query %q produced null", jqQuery)
	}

	return json.Marshal(v)
}
