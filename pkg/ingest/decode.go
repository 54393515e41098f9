package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/praetorian-inc/aztopo/internal/jq"
)

// DecodeTopology reads one topology document. Unknown fields are ignored,
// but the resources list must be present.
func DecodeTopology(r io.Reader) (Topology, error) {
	var t Topology
	if err := decode(r, "resources", &t); err != nil {
		return Topology{}, err
	}
	return t, nil
}

// DecodeConnectivityCheck reads one connectivity-check document. The hops
// list must be present.
func DecodeConnectivityCheck(r io.Reader) (ConnectivityCheck, error) {
	var c ConnectivityCheck
	if err := decode(r, "hops", &c); err != nil {
		return ConnectivityCheck{}, err
	}
	return c, nil
}

// decode reads exactly one JSON object that carries key and unmarshals it
// into v.
func decode(r io.Reader, key string, v any) error {
	dec := json.NewDecoder(r)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty document", ErrInvalidDocument)
		}
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after the document", ErrInvalidDocument)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: document is null", ErrInvalidDocument)
	}
	if value, ok := fields[key]; !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return fmt.Errorf("%w: missing %q", ErrInvalidDocument, key)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// extract applies an optional jq expression before decoding.
func extract(document []byte, jqExpr string) ([]byte, error) {
	if jqExpr == "" {
		return document, nil
	}
	out, err := jq.Extract(document, jqExpr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

// ParseTopology decodes a topology, first narrowing the document with
// jqExpr when it is not empty.
func ParseTopology(document []byte, jqExpr string) (Topology, error) {
	data, err := extract(document, jqExpr)
	if err != nil {
		return Topology{}, err
	}
	return DecodeTopology(bytes.NewReader(data))
}

// ParseConnectivityCheck is ParseTopology for connectivity checks.
func ParseConnectivityCheck(document []byte, jqExpr string) (ConnectivityCheck, error) {
	data, err := extract(document, jqExpr)
	if err != nil {
		return ConnectivityCheck{}, err
	}
	return DecodeConnectivityCheck(bytes.NewReader(data))
}

func LoadTopologyFile(path, jqExpr string) (Topology, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return Topology{}, err
	}
	return ParseTopology(document, jqExpr)
}

func LoadConnectivityFile(path, jqExpr string) (ConnectivityCheck, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return ConnectivityCheck{}, err
	}
	return ParseConnectivityCheck(document, jqExpr)
}
