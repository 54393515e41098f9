// Package watcher retrieves topologies and connectivity checks from Azure
// Network Watcher.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
)

const (
	// DefaultWatcherGroup is where Azure creates Network Watchers automatically.
	DefaultWatcherGroup = "NetworkWatcherRG"

	pollFrequency = 5 * time.Second
)

// Watcher names one regional Network Watcher.
type Watcher struct {
	ResourceGroup string
	Name          string
	Location      string
}

// DefaultWatcher is the watcher Azure provisions for location.
func DefaultWatcher(location string) Watcher {
	return Watcher{
		ResourceGroup: DefaultWatcherGroup,
		Name:          "NetworkWatcher_" + location,
		Location:      location,
	}
}

// Target selects what a topology covers. Exactly one of ResourceGroup,
// VirtualNetworkID and SubnetID must be set.
type Target struct {
	Watcher          Watcher
	ResourceGroup    string
	VirtualNetworkID string
	SubnetID         string
}

// ConnectivityRequest describes one connectivity check.
type ConnectivityRequest struct {
	Watcher            Watcher
	SourceID           string
	SourcePort         int32
	DestinationID      string
	DestinationAddress string
	Port               int32
	// Protocol is Tcp, Http, Https or Icmp. Empty means Tcp.
	Protocol string
}

// Client wraps the ARM clients used to collect network data for one
// subscription.
type Client struct {
	subscriptionID string
	watchers       *armnetwork.WatchersClient
	groups         *armresources.ResourceGroupsClient
	vms            *armcompute.VirtualMachinesClient
	graph          *armresourcegraph.Client
	logger         *slog.Logger
}

func New(subscriptionID string, cred azcore.TokenCredential, opts *arm.ClientOptions) (*Client, error) {
	watchers, err := armnetwork.NewWatchersClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create network watcher client: %w", err)
	}

	groups, err := armresources.NewResourceGroupsClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource group client: %w", err)
	}

	vms, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual machine client: %w", err)
	}

	graph, err := armresourcegraph.NewClient(cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ARG client: %w", err)
	}

	return &Client{
		subscriptionID: subscriptionID,
		watchers:       watchers,
		groups:         groups,
		vms:            vms,
		graph:          graph,
		logger:         slog.Default().With("component", "watcher", "subscription", subscriptionID),
	}, nil
}

// Topology fetches the topology of a resource group, virtual network or
// subnet.
func (c *Client) Topology(ctx context.Context, target Target) (ingest.Topology, error) {
	params, err := target.parameters()
	if err != nil {
		return ingest.Topology{}, err
	}

	c.logger.Info("fetching topology", "watcher", target.Watcher.Name, "resource_group", target.ResourceGroup)
	resp, err := c.watchers.GetTopology(ctx, target.Watcher.ResourceGroup, target.Watcher.Name, params, nil)
	if err != nil {
		return ingest.Topology{}, fmt.Errorf("failed to get topology: %w", err)
	}

	return TopologyFromARM(resp.Topology), nil
}

// String names the targeted scope.
func (t Target) String() string {
	switch {
	case t.SubnetID != "":
		return t.SubnetID
	case t.VirtualNetworkID != "":
		return t.VirtualNetworkID
	default:
		return t.ResourceGroup
	}
}

func (t Target) parameters() (armnetwork.TopologyParameters, error) {
	var params armnetwork.TopologyParameters
	set := 0
	if t.ResourceGroup != "" {
		params.TargetResourceGroupName = to.Ptr(t.ResourceGroup)
		set++
	}
	if t.VirtualNetworkID != "" {
		params.TargetVirtualNetwork = &armnetwork.SubResource{ID: to.Ptr(t.VirtualNetworkID)}
		set++
	}
	if t.SubnetID != "" {
		params.TargetSubnet = &armnetwork.SubResource{ID: to.Ptr(t.SubnetID)}
		set++
	}
	if set != 1 {
		return params, errors.New("exactly one of resource group, virtual network or subnet must be targeted")
	}
	return params, nil
}

// CheckConnectivity runs a connectivity check and waits for its result.
func (c *Client) CheckConnectivity(ctx context.Context, req ConnectivityRequest) (ingest.ConnectivityCheck, error) {
	params, err := req.parameters()
	if err != nil {
		return ingest.ConnectivityCheck{}, err
	}

	c.logger.Info("running connectivity check", "watcher", req.Watcher.Name, "source", req.SourceID)
	poller, err := c.watchers.BeginCheckConnectivity(ctx, req.Watcher.ResourceGroup, req.Watcher.Name, params, nil)
	if err != nil {
		return ingest.ConnectivityCheck{}, fmt.Errorf("failed to start connectivity check: %w", err)
	}

	resp, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: pollFrequency})
	if err != nil {
		return ingest.ConnectivityCheck{}, fmt.Errorf("connectivity check failed: %w", err)
	}

	return ConnectivityFromARM(resp.ConnectivityInformation), nil
}

func (r ConnectivityRequest) parameters() (armnetwork.ConnectivityParameters, error) {
	if r.SourceID == "" {
		return armnetwork.ConnectivityParameters{}, errors.New("a source resource id is required")
	}
	if (r.DestinationID == "") == (r.DestinationAddress == "") {
		return armnetwork.ConnectivityParameters{}, errors.New("exactly one of destination resource id or address is required")
	}

	protocol := armnetwork.ProtocolTCP
	if r.Protocol != "" {
		protocol = armnetwork.Protocol("")
		for _, p := range armnetwork.PossibleProtocolValues() {
			if strings.EqualFold(string(p), r.Protocol) {
				protocol = p
			}
		}
		if protocol == "" {
			return armnetwork.ConnectivityParameters{}, fmt.Errorf("unsupported protocol %q", r.Protocol)
		}
	}

	params := armnetwork.ConnectivityParameters{
		Source:      &armnetwork.ConnectivitySource{ResourceID: to.Ptr(r.SourceID)},
		Destination: &armnetwork.ConnectivityDestination{},
		Protocol:    to.Ptr(protocol),
	}
	if r.SourcePort > 0 {
		params.Source.Port = to.Ptr(r.SourcePort)
	}
	if r.DestinationID != "" {
		params.Destination.ResourceID = to.Ptr(r.DestinationID)
	} else {
		params.Destination.Address = to.Ptr(r.DestinationAddress)
	}
	if r.Port > 0 {
		params.Destination.Port = to.Ptr(r.Port)
	}
	return params, nil
}

// ResourceGroups lists the resource groups of the subscription.
func (c *Client) ResourceGroups(ctx context.Context) ([]string, error) {
	var names []string
	pager := c.groups.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list resource groups: %w", err)
		}
		for _, rg := range page.Value {
			if rg != nil && rg.Name != nil {
				names = append(names, *rg.Name)
			}
		}
	}
	return names, nil
}

// VirtualMachines lists the ids of the virtual machines in a resource
// group. They are valid connectivity-check sources.
func (c *Client) VirtualMachines(ctx context.Context, resourceGroup string) ([]string, error) {
	var ids []string
	pager := c.vms.NewListPager(resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list virtual machines: %w", err)
		}
		for _, vm := range page.Value {
			if vm != nil && vm.ID != nil {
				ids = append(ids, *vm.ID)
			}
		}
	}
	return ids, nil
}

var locationPattern = regexp.MustCompile(`^[a-z0-9]+$`)

const watcherQuery = `Resources
| where type =~ 'microsoft.network/networkwatchers'
| where location =~ '%s'
| project name, resourceGroup, location`

// FindWatcher looks up the Network Watcher of a region with Azure Resource
// Graph and falls back to the default watcher name when none is found.
func (c *Client) FindWatcher(ctx context.Context, location string) (Watcher, error) {
	location = strings.ToLower(strings.ReplaceAll(location, " ", ""))
	if !locationPattern.MatchString(location) {
		return Watcher{}, fmt.Errorf("invalid location %q", location)
	}

	request := armresourcegraph.QueryRequest{
		Query:         to.Ptr(fmt.Sprintf(watcherQuery, location)),
		Subscriptions: []*string{to.Ptr(c.subscriptionID)},
		Options: &armresourcegraph.QueryRequestOptions{
			ResultFormat: to.Ptr(armresourcegraph.ResultFormatObjectArray),
		},
	}

	resp, err := c.graph.Resources(ctx, request, nil)
	if err != nil {
		return Watcher{}, fmt.Errorf("failed to execute ARG query: %w", err)
	}

	if watchers := watchersFromRows(resp.Data); len(watchers) > 0 {
		return watchers[0], nil
	}

	w := DefaultWatcher(location)
	c.logger.Warn("no network watcher found, using default", "location", location, "watcher", w.Name)
	return w, nil
}

// watchersFromRows reads an object-array ARG result.
func watchersFromRows(data any) []Watcher {
	rows, ok := data.([]any)
	if !ok {
		return nil
	}

	var watchers []Watcher
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		group, _ := m["resourceGroup"].(string)
		location, _ := m["location"].(string)
		if name == "" || group == "" {
			continue
		}
		watchers = append(watchers, Watcher{ResourceGroup: group, Name: name, Location: location})
	}
	return watchers
}

// DefaultSubscription returns the only enabled subscription the credential
// can see.
func DefaultSubscription(ctx context.Context, cred azcore.TokenCredential) (string, error) {
	client, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create subscriptions client: %w", err)
	}

	var enabled []string
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if sub == nil || sub.SubscriptionID == nil {
				continue
			}
			if sub.State != nil && *sub.State != armsubscriptions.SubscriptionStateEnabled {
				continue
			}
			enabled = append(enabled, *sub.SubscriptionID)
		}
	}

	if len(enabled) != 1 {
		return "", fmt.Errorf("found %d enabled subscriptions, set azure.subscription to choose one", len(enabled))
	}
	return enabled[0], nil
}
