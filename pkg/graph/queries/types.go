package queries

// QueryMetadata remains useful for grouping metadata within the Query struct.
type QueryMetadata struct {
	Name        string `yaml:"name"`        // User-friendly name of the query
	Description string `yaml:"description"` // What the query writes
	Order       int    `yaml:"order"`       // Execution order - lower numbers run first (default 0)
}

// Query represents a single loaded Cypher template.
type Query struct {
	// Fields loaded from YAML
	QueryMetadata `yaml:",inline"` // Embeds QueryMetadata fields at the top level of YAML
	Cypher        string           `yaml:"cypher"` // Cypher text with template placeholders for identifiers

	// Fields populated programmatically, not from YAML
	ID       string // Unique identifier, e.g., "merge/nodes"
	Type     string // e.g., "merge", "schema"
	FileName string // Original filename, e.g., "nodes.yaml"
}

// Well-known query ids.
const (
	MergeNodesID         = "merge/nodes"
	MergeRelationshipsID = "merge/relationships"
	NodeIDIndexID        = "schema/node_id_index"
)

// NodeParams fills the merge/nodes template.
type NodeParams struct {
	Label string
}

// RelationshipParams fills the merge/relationships template.
type RelationshipParams struct {
	SourceLabel string
	TargetLabel string
	Type        string
}

// IndexParams fills the schema/node_id_index template.
type IndexParams struct {
	IndexName string
	Label     string
}
