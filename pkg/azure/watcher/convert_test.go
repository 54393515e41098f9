package watcher

import (
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	prefix = "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg-net/providers"
	nsgID  = prefix + "/Microsoft.Network/networkSecurityGroups/nsg1"
	vmID   = prefix + "/Microsoft.Compute/virtualMachines/vm1"
	nicID  = prefix + "/Microsoft.Network/networkInterfaces/nic1"
)

func TestTopologyFromARM(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	arm := armnetwork.Topology{
		ID:              to.Ptr("topology-1"),
		CreatedDateTime: &created,
		Resources: []*armnetwork.TopologyResource{
			{ID: to.Ptr(nsgID), Name: to.Ptr("nsg1"), Location: to.Ptr("westeurope")},
			nil,
			{
				ID:   to.Ptr(vmID),
				Name: to.Ptr("vm1"),
				Associations: []*armnetwork.TopologyAssociation{
					{
						Name:            to.Ptr("nsg1"),
						ResourceID:      to.Ptr(nsgID),
						AssociationType: to.Ptr(armnetwork.AssociationTypeContains),
					},
					nil,
				},
			},
		},
	}

	topo := TopologyFromARM(arm)

	assert.Equal(t, ingest.Topology{
		ID:              "topology-1",
		CreatedDateTime: "2024-05-01T10:00:00Z",
		Resources: []ingest.Resource{
			{ID: nsgID, Name: "nsg1", Location: "westeurope"},
			{ID: vmID, Name: "vm1", Associations: []ingest.Association{
				{Name: "nsg1", ResourceID: nsgID, AssociationType: "Contains"},
			}},
		},
	}, topo)

	intents, err := ingest.BuildTopology(topo)
	require.NoError(t, err)
	assert.Len(t, intents, 3)
}

func TestConnectivityFromARM(t *testing.T) {
	arm := armnetwork.ConnectivityInformation{
		ConnectionStatus: to.Ptr(armnetwork.ConnectionStatus("Reachable")),
		AvgLatencyInMs:   to.Ptr[int32](2),
		ProbesSent:       to.Ptr[int32](66),
		ProbesFailed:     to.Ptr[int32](0),
		Hops: []*armnetwork.ConnectivityHop{
			{
				ID:         to.Ptr("h1"),
				Type:       to.Ptr("Source"),
				Address:    to.Ptr("10.0.0.4"),
				ResourceID: to.Ptr(nicID + "/ipConfigurations/ipconfig1"),
				NextHopIDs: []*string{to.Ptr("h2"), nil},
			},
			{
				ID:         to.Ptr("h2"),
				Type:       to.Ptr("Internet"),
				ResourceID: to.Ptr("Internet"),
			},
		},
	}

	check := ConnectivityFromARM(arm)

	assert.Equal(t, "Reachable", check.ConnectionStatus)
	assert.Equal(t, 2, check.AvgLatencyInMs)
	assert.Equal(t, 66, check.ProbesSent)
	require.Len(t, check.Hops, 2)
	assert.Equal(t, ingest.Hop{
		ID:         "h1",
		ResourceID: nicID + "/ipConfigurations/ipconfig1",
		NextHopIDs: []string{"h2"},
		Type:       "Source",
		Address:    "10.0.0.4",
	}, check.Hops[0])
	assert.Nil(t, check.Hops[1].NextHopIDs)

	intents, err := ingest.BuildConnectivity(check)
	require.NoError(t, err)
	assert.Len(t, intents, 3)
}

func TestConvertEmpty(t *testing.T) {
	assert.Empty(t, TopologyFromARM(armnetwork.Topology{}).Resources)
	assert.Empty(t, ConnectivityFromARM(armnetwork.ConnectivityInformation{}).Hops)
}
