package graph

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	// DefaultBatchSize is the default number of nodes/relationships to process in a single transaction
	DefaultBatchSize = 1000
)

type applyConfig struct {
	batchSize int
	logger    *slog.Logger
}

// ApplyOption configures Apply.
type ApplyOption func(*applyConfig)

// WithBatchSize bounds the number of intents sent to a BatchSink at once.
func WithBatchSize(n int) ApplyOption {
	return func(c *applyConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) ApplyOption {
	return func(c *applyConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ApplyResult reports how much of an intent sequence reached the sink.
type ApplyResult struct {
	BatchResult

	// Applied is the length of the prefix of the sequence that was applied.
	Applied       int `json:"applied"`
	Nodes         int `json:"nodes"`
	Relationships int `json:"relationships"`
}

// Apply drives intents into sink in order. Every identifier is checked
// before anything is written. The first sink error aborts the remaining
// sequence; the graph is then left in the state produced by the applied
// prefix, and re-running the whole sequence is safe.
//
// When sink implements BatchSink, consecutive intents of the same kind are
// merged in batches, which never reorders a node after a relationship.
func Apply(ctx context.Context, sink Sink, intents []Intent, opts ...ApplyOption) (*ApplyResult, error) {
	cfg := applyConfig{batchSize: DefaultBatchSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, intent := range intents {
		if err := Validate(intent); err != nil {
			return &ApplyResult{}, err
		}
	}

	if bs, ok := sink.(BatchSink); ok {
		return applyBatches(ctx, bs, intents, cfg)
	}

	result := &ApplyResult{}
	for _, intent := range intents {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		switch in := intent.(type) {
		case Node:
			if err := sink.MergeNode(ctx, in); err != nil {
				return result, fmt.Errorf("failed to merge node %s %q: %w", in.Label, in.ID, err)
			}
			result.Nodes++
		case Relationship:
			if err := sink.MergeRelationship(ctx, in); err != nil {
				return result, fmt.Errorf("failed to merge relationship %s: %w", in, err)
			}
			result.Relationships++
		}
		result.Applied++
	}

	cfg.logger.Debug("applied intents", "count", result.Applied)
	return result, nil
}

func applyBatches(ctx context.Context, sink BatchSink, intents []Intent, cfg applyConfig) (*ApplyResult, error) {
	result := &ApplyResult{}

	for start := 0; start < len(intents); {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		kind := intents[start].Kind()
		end := start
		for end < len(intents) && end-start < cfg.batchSize && intents[end].Kind() == kind {
			end++
		}
		batch := intents[start:end]

		var (
			br  *BatchResult
			err error
		)
		switch kind {
		case KindNode:
			nodes := make([]Node, len(batch))
			for i, in := range batch {
				nodes[i] = in.(Node)
			}
			br, err = sink.MergeNodes(ctx, nodes)
			if err == nil {
				result.Nodes += len(nodes)
			}
		case KindRelationship:
			rels := make([]Relationship, len(batch))
			for i, in := range batch {
				rels[i] = in.(Relationship)
			}
			br, err = sink.MergeRelationships(ctx, rels)
			if err == nil {
				result.Relationships += len(rels)
			}
		}
		if err != nil {
			return result, fmt.Errorf("failed to merge %s batch at intent %d: %w", kind, start, err)
		}

		result.Add(br)
		result.Applied = end
		cfg.logger.Debug("applied batch", "kind", kind.String(), "size", len(batch), "applied", result.Applied)
		start = end
	}

	return result, nil
}
