package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/praetorian-inc/aztopo/pkg/graph"
)

// Kind names the two document shapes.
type Kind string

const (
	KindTopology     Kind = "topology"
	KindConnectivity Kind = "connectivity"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTopology, KindConnectivity:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown document kind %q", s)
	}
}

// Options tune a single ingestion run.
type Options struct {
	// JQ narrows the document before decoding.
	JQ        string
	BatchSize int
	Logger    *slog.Logger
}

// Report describes one ingestion run. It is returned on failure too, so
// callers can report how much of the run reached the sink.
type Report struct {
	RunID string `json:"runId"`
	Kind  Kind   `json:"kind"`
	graph.ApplyResult
}

// Build decodes a document of the given kind and returns its intents.
func Build(kind Kind, document []byte, jqExpr string) ([]graph.Intent, error) {
	switch kind {
	case KindTopology:
		t, err := ParseTopology(document, jqExpr)
		if err != nil {
			return nil, err
		}
		return BuildTopology(t)
	case KindConnectivity:
		c, err := ParseConnectivityCheck(document, jqExpr)
		if err != nil {
			return nil, err
		}
		return BuildConnectivity(c)
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
}

// Run builds the intents of one document and applies them to sink.
func Run(ctx context.Context, sink graph.Sink, kind Kind, document []byte, opts Options) (*Report, error) {
	report, logger := newRun(kind, opts)

	intents, err := Build(kind, document, opts.JQ)
	if err != nil {
		logger.Warn("rejected document", "code", ErrorCode(err), "error", err)
		return report, err
	}
	return apply(ctx, sink, intents, report, opts.BatchSize, logger)
}

// RunIntents applies intents that were built elsewhere, such as from a
// live Azure query.
func RunIntents(ctx context.Context, sink graph.Sink, kind Kind, intents []graph.Intent, opts Options) (*Report, error) {
	report, logger := newRun(kind, opts)
	return apply(ctx, sink, intents, report, opts.BatchSize, logger)
}

func newRun(kind Kind, opts Options) (*Report, *slog.Logger) {
	report := &Report{RunID: uuid.NewString(), Kind: kind}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return report, logger.With("run_id", report.RunID, "kind", string(kind))
}

func apply(ctx context.Context, sink graph.Sink, intents []graph.Intent, report *Report, batchSize int, logger *slog.Logger) (*Report, error) {
	logger.Info("applying intents", "intents", len(intents))

	result, err := graph.Apply(ctx, sink, intents, graph.WithBatchSize(batchSize), graph.WithLogger(logger))
	if result != nil {
		report.ApplyResult = *result
	}
	if err != nil {
		logger.Error("ingestion aborted", "applied", report.Applied, "total", len(intents), "error", err)
		return report, err
	}

	report.LogSummary(logger)
	return report, nil
}
