package ingest

import (
	"context"
	"testing"

	"github.com/praetorian-inc/aztopo/pkg/azure/hop"
	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nic1ID = rgPrefix + "/Microsoft.Network/networkInterfaces/nic1"
	nic2ID = rgPrefix + "/Microsoft.Network/networkInterfaces/nic2"
	gw1ID  = rgPrefix + "/Microsoft.Network/virtualNetworkGateways/gw1"
	pipID  = rgPrefix + "/Microsoft.Network/publicIPAddresses/pip1"
)

func sampleCheck() ConnectivityCheck {
	return ConnectivityCheck{Hops: []Hop{
		{ID: "h1", ResourceID: nic1ID + "/ipConfigurations/c1", NextHopIDs: []string{"h2"}},
		{ID: "h2", ResourceID: hop.Internet},
	}}
}

func TestBuildConnectivityEndToEnd(t *testing.T) {
	intents, err := BuildConnectivity(sampleCheck())
	require.NoError(t, err)

	assert.Equal(t, []graph.Intent{
		graph.Node{Label: "networkInterfaces", ID: nic1ID, Name: "nic1"},
		graph.Node{Label: "Internet", ID: "Internet", Name: "Internet"},
		graph.Relationship{
			SourceLabel: "networkInterfaces", SourceID: nic1ID,
			TargetLabel: "Internet", TargetID: "Internet",
			Type: RelConnectedTo,
		},
	}, intents)
}

func TestBuildConnectivityMultiHop(t *testing.T) {
	check := ConnectivityCheck{Hops: []Hop{
		{ID: "h1", ResourceID: nic1ID + "/ipConfigurations/c1", NextHopIDs: []string{"h3", "h2"}},
		{ID: "h2", ResourceID: gw1ID, NextHopIDs: []string{"h4"}},
		{ID: "h3", ResourceID: nic2ID + "/ipConfigurations/ipconfig1", NextHopIDs: []string{"h4"}},
		{ID: "h4", ResourceID: hop.Internet, NextHopIDs: []string{"h1"}},
	}}

	intents, err := BuildConnectivity(check)
	require.NoError(t, err)
	require.Len(t, intents, 8)

	assertNodesPrecedeRelationships(t, intents)

	var rels []graph.Relationship
	for _, in := range intents {
		if r, ok := in.(graph.Relationship); ok {
			rels = append(rels, r)
		}
	}
	assert.Equal(t, []graph.Relationship{
		{SourceLabel: "networkInterfaces", SourceID: nic1ID, TargetLabel: "networkInterfaces", TargetID: nic2ID, Type: RelConnectedTo},
		{SourceLabel: "networkInterfaces", SourceID: nic1ID, TargetLabel: "virtualNetworkGateways", TargetID: gw1ID, Type: RelConnectedTo},
		{SourceLabel: "virtualNetworkGateways", SourceID: gw1ID, TargetLabel: "Internet", TargetID: "Internet", Type: RelConnectedTo},
		{SourceLabel: "networkInterfaces", SourceID: nic2ID, TargetLabel: "Internet", TargetID: "Internet", Type: RelConnectedTo},
	}, rels)
}

func TestBuildConnectivityInternetIsNotALinkSource(t *testing.T) {
	check := ConnectivityCheck{Hops: []Hop{
		{ID: "h1", ResourceID: hop.Internet, NextHopIDs: []string{"h2"}},
		{ID: "h2", ResourceID: gw1ID},
	}}

	intents, err := BuildConnectivity(check)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	for _, in := range intents {
		assert.Equal(t, graph.KindNode, in.Kind())
	}
}

func TestBuildConnectivityUnrecognizedHop(t *testing.T) {
	check := ConnectivityCheck{Hops: []Hop{
		{ID: "h1", ResourceID: nic1ID + "/ipConfigurations/c1", NextHopIDs: []string{"h2"}},
		{ID: "h2", ResourceID: pipID},
	}}

	intents, err := BuildConnectivity(check)
	require.Error(t, err)
	assert.Nil(t, intents)
	assert.ErrorIs(t, err, hop.ErrUnrecognizedHopResourceID)
	assert.Equal(t, CodeUnrecognizedHopResourceID, ErrorCode(err))

	var hopErr *hop.UnrecognizedError
	require.ErrorAs(t, err, &hopErr)
	assert.Equal(t, pipID, hopErr.RawID)
}

func TestBuildConnectivityUnknownNextHop(t *testing.T) {
	check := ConnectivityCheck{Hops: []Hop{
		{ID: "h1", ResourceID: nic1ID + "/ipConfigurations/c1", NextHopIDs: []string{"h2", "h9"}},
		{ID: "h2", ResourceID: hop.Internet},
	}}

	intents, err := BuildConnectivity(check)
	require.Error(t, err)
	assert.Nil(t, intents)
	assert.ErrorIs(t, err, ErrUnrecognizedDestinationHop)
	assert.Equal(t, CodeUnrecognizedDestination, ErrorCode(err))

	var destErr *DestinationError
	require.ErrorAs(t, err, &destErr)
	assert.Equal(t, "h1", destErr.HopID)
	assert.Equal(t, "h9", destErr.NextHopID)
	assert.Empty(t, destErr.Resolved)
}

func TestResolutionDestination(t *testing.T) {
	r := resolution{
		"nic":      nic1ID,
		"internet": hop.Internet,
		"odd":      pipID,
	}

	dest, err := r.destination("h0", "nic")
	require.NoError(t, err)
	assert.Equal(t, hop.Classification{Type: "networkInterfaces", Name: "nic1", ID: nic1ID}, dest)

	dest, err = r.destination("h0", "internet")
	require.NoError(t, err)
	assert.True(t, dest.IsInternet())

	_, err = r.destination("h0", "odd")
	var destErr *DestinationError
	require.ErrorAs(t, err, &destErr)
	assert.Equal(t, pipID, destErr.Resolved)
}

func TestBuildConnectivityIdempotent(t *testing.T) {
	ctx := context.Background()
	sink := adapters.NewMemorySink()

	for i := 0; i < 2; i++ {
		intents, err := BuildConnectivity(sampleCheck())
		require.NoError(t, err)
		_, err = graph.Apply(ctx, sink, intents)
		require.NoError(t, err)
	}

	snap := sink.Snapshot()
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Relationships, 1)
}

func TestBuildConnectivityEmpty(t *testing.T) {
	intents, err := BuildConnectivity(ConnectivityCheck{})
	require.NoError(t, err)
	assert.Empty(t, intents)
}
