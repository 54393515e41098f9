package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	graph.Sink
	calls int
}

func (s *failingSink) MergeNode(ctx context.Context, node graph.Node) error {
	s.calls++
	if s.calls > 1 {
		return errors.New("connection reset")
	}
	return nil
}

func TestRunTopology(t *testing.T) {
	sink := adapters.NewMemorySink()

	report, err := Run(context.Background(), sink, KindTopology, []byte(topologyJSON), Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, KindTopology, report.Kind)
	assert.Equal(t, 3, report.Applied)
	assert.Equal(t, 2, report.Nodes)
	assert.Equal(t, 1, report.Relationships)
	assert.Equal(t, 1, report.RelationshipsCreated)
	assert.Len(t, sink.Snapshot().Nodes, 2)
}

func TestRunConnectivityWithJQ(t *testing.T) {
	sink := adapters.NewMemorySink()
	wrapped := []byte(`{"properties": ` + connectivityJSON + `}`)

	report, err := Run(context.Background(), sink, KindConnectivity, wrapped, Options{JQ: ".properties", BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Applied)
	assert.Len(t, sink.Snapshot().Relationships, 1)
}

func TestRunRejectedDocument(t *testing.T) {
	sink := adapters.NewMemorySink()
	doc := []byte(`{"hops": [{"id": "h1", "resourceId": "` + pipID + `"}]}`)

	report, err := Run(context.Background(), sink, KindConnectivity, doc, Options{})
	require.Error(t, err)
	assert.Equal(t, CodeUnrecognizedHopResourceID, ErrorCode(err))
	assert.NotEmpty(t, report.RunID)
	assert.Zero(t, report.Applied)
	assert.Empty(t, sink.Snapshot().Nodes)
}

func TestRunReportsAppliedPrefix(t *testing.T) {
	sink := &failingSink{}

	report, err := Run(context.Background(), sink, KindTopology, []byte(topologyJSON), Options{})
	require.Error(t, err)
	assert.False(t, IsDataError(err))
	assert.Equal(t, 1, report.Applied)
}

func TestRunWrongKindDocument(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		document string
	}{
		{name: "connectivity as topology", kind: KindTopology, document: connectivityJSON},
		{name: "topology as connectivity", kind: KindConnectivity, document: topologyJSON},
		{name: "null", kind: KindTopology, document: `null`},
		{name: "empty object", kind: KindConnectivity, document: `{}`},
		{name: "trailing data", kind: KindTopology, document: topologyJSON + ` trailing-garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := adapters.NewMemorySink()

			report, err := Run(context.Background(), sink, tt.kind, []byte(tt.document), Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDocument)
			assert.Zero(t, report.Applied)
			assert.Empty(t, sink.Snapshot().Nodes)
		})
	}
}

func TestRunUnknownKind(t *testing.T) {
	_, err := Run(context.Background(), adapters.NewMemorySink(), Kind("routes"), []byte(`{}`), Options{})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("connectivity")
	require.NoError(t, err)
	assert.Equal(t, KindConnectivity, kind)

	_, err = ParseKind("Topology")
	assert.Error(t, err)
}

func TestErrorCodeNil(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.False(t, IsDataError(errors.New("boom")))
}
