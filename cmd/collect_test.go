package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/praetorian-inc/aztopo/pkg/azure/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVMs struct {
	ids []string
	err error
}

func (s stubVMs) VirtualMachines(context.Context, string) ([]string, error) {
	return s.ids, s.err
}

func TestConnectivitySources(t *testing.T) {
	tests := []struct {
		name        string
		vms         stubVMs
		source      string
		sourceGroup string
		want        []string
		wantErr     string
	}{
		{name: "single source", source: "/vm1", want: []string{"/vm1"}},
		{name: "source group", sourceGroup: "rg-app", vms: stubVMs{ids: []string{"/vm1", "/vm2"}}, want: []string{"/vm1", "/vm2"}},
		{name: "empty source group", sourceGroup: "rg-empty", wantErr: "rg-empty has no virtual machines"},
		{name: "listing fails", sourceGroup: "rg-app", vms: stubVMs{err: errors.New("forbidden")}, wantErr: "forbidden"},
		{name: "nothing selected", wantErr: "one of --source or --source-group is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := connectivitySources(context.Background(), tt.vms, tt.source, tt.sourceGroup)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopologyTarget(t *testing.T) {
	w := watcher.DefaultWatcher("westeurope")

	target, err := topologyTarget(w, "", "", "/subnets/s1")
	require.NoError(t, err)
	assert.Equal(t, watcher.Target{Watcher: w, SubnetID: "/subnets/s1"}, target)

	target, err = topologyTarget(w, "rg-net", "", "")
	require.NoError(t, err)
	assert.Equal(t, "rg-net", target.ResourceGroup)

	_, err = topologyTarget(w, "", "", "")
	assert.ErrorContains(t, err, "--subnet")
}

func TestCollectFlags(t *testing.T) {
	topology := newCollectTopologyCmd()
	assert.NotNil(t, topology.Flags().Lookup("subnet"))

	connectivity := newCollectConnectivityCmd()
	require.NotNil(t, connectivity.Flags().Lookup("source-port"))
	require.NoError(t, connectivity.Flags().Set("source-port", "40000"))
	port, err := connectivity.Flags().GetInt32("source-port")
	require.NoError(t, err)
	assert.Equal(t, int32(40000), port)
}
