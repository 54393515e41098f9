package ingest

// Topology is a resource-group topology as returned by the Network Watcher
// getTopology operation.
type Topology struct {
	ID              string     `json:"id,omitempty"`
	CreatedDateTime string     `json:"createdDateTime,omitempty"`
	LastModified    string     `json:"lastModified,omitempty"`
	Resources       []Resource `json:"resources"`
}

type Resource struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Location     string        `json:"location,omitempty"`
	Associations []Association `json:"associations,omitempty"`
}

// Association links a resource to another resource by id.
type Association struct {
	Name            string `json:"name,omitempty"`
	ResourceID      string `json:"resourceId"`
	AssociationType string `json:"associationType"`
}

// ConnectivityCheck is a connectivity-check trace as returned by the
// Network Watcher checkConnectivity operation. Only Hops feeds the graph.
type ConnectivityCheck struct {
	Hops             []Hop  `json:"hops"`
	ConnectionStatus string `json:"connectionStatus,omitempty"`
	AvgLatencyInMs   int    `json:"avgLatencyInMs,omitempty"`
	MinLatencyInMs   int    `json:"minLatencyInMs,omitempty"`
	MaxLatencyInMs   int    `json:"maxLatencyInMs,omitempty"`
	ProbesSent       int    `json:"probesSent,omitempty"`
	ProbesFailed     int    `json:"probesFailed,omitempty"`
}

// Hop is one network element traversed by a connectivity check.
type Hop struct {
	ID         string   `json:"id"`
	ResourceID string   `json:"resourceId"`
	NextHopIDs []string `json:"nextHopIds,omitempty"`
	Type       string   `json:"type,omitempty"`
	Address    string   `json:"address,omitempty"`
}
