package hop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "/subscriptions/x/resourceGroups/y/providers/Microsoft.Network"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Classification
	}{
		{
			name:     "internet sentinel",
			raw:      "Internet",
			expected: Classification{Type: "Internet", Name: "Internet", ID: "Internet"},
		},
		{
			name: "nic ip configuration is truncated to the nic",
			raw:  prefix + "/networkInterfaces/nic1/ipConfigurations/ipconfig1",
			expected: Classification{
				Type: "networkInterfaces",
				Name: "nic1",
				ID:   prefix + "/networkInterfaces/nic1",
			},
		},
		{
			name: "elided prefix",
			raw:  ".../providers/Microsoft.Network/networkInterfaces/nic1/ipConfigurations/ipconfig1",
			expected: Classification{
				Type: "networkInterfaces",
				Name: "nic1",
				ID:   ".../providers/Microsoft.Network/networkInterfaces/nic1",
			},
		},
		{
			name: "virtual network gateway",
			raw:  prefix + "/virtualNetworkGateways/gw1",
			expected: Classification{
				Type: "virtualNetworkGateways",
				Name: "gw1",
				ID:   prefix + "/virtualNetworkGateways/gw1",
			},
		},
		{
			name: "lower case provider",
			raw:  "/subscriptions/x/resourcegroups/y/providers/microsoft.network/virtualnetworkgateways/gw1",
			expected: Classification{
				Type: "virtualNetworkGateways",
				Name: "gw1",
				ID:   "/subscriptions/x/resourcegroups/y/providers/microsoft.network/virtualnetworkgateways/gw1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Classify(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	raws := []string{
		"/subscriptions/x/resourceGroups/y/providers/Microsoft.Storage/storageAccounts/a",
		prefix + "/networkInterfaces/nic1",
		prefix + "/virtualNetworkGateways/gw1/ipConfigurations/default",
		"internet",
		"",
	}

	for _, raw := range raws {
		t.Run(raw, func(t *testing.T) {
			_, err := Classify(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnrecognizedHopResourceID))

			var uerr *UnrecognizedError
			require.True(t, errors.As(err, &uerr))
			assert.Equal(t, raw, uerr.RawID)
		})
	}
}

func TestClassifyCanonical(t *testing.T) {
	nic, err := Classify(prefix + "/networkInterfaces/nic1/ipConfigurations/c1")
	require.NoError(t, err)

	c, ok := ClassifyCanonical(nic.ID)
	require.True(t, ok)
	assert.Equal(t, nic, c)

	c, ok = ClassifyCanonical("Internet")
	require.True(t, ok)
	assert.True(t, c.IsInternet())

	c, ok = ClassifyCanonical(prefix + "/virtualNetworkGateways/gw1")
	require.True(t, ok)
	assert.Equal(t, "virtualNetworkGateways", c.Type)

	_, ok = ClassifyCanonical("/subscriptions/x/resourceGroups/y/providers/Microsoft.Storage/storageAccounts/a")
	assert.False(t, ok)
}

func TestIsLinkSource(t *testing.T) {
	assert.True(t, IsLinkSource(Classification{Type: TypeNetworkInterface}))
	assert.True(t, IsLinkSource(Classification{Type: TypeVirtualNetworkGateway}))
	assert.False(t, IsLinkSource(Classification{Type: Internet}))
	assert.False(t, IsLinkSource(Classification{Type: "storageAccounts"}))
}

func TestTypes(t *testing.T) {
	assert.ElementsMatch(t, []string{"Internet", "networkInterfaces", "virtualNetworkGateways"}, Types())
}
