package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/praetorian-inc/aztopo/internal/message"
	"github.com/praetorian-inc/aztopo/pkg/azure/watcher"
	"github.com/praetorian-inc/aztopo/pkg/graph"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Retrieve data from Azure Network Watcher and ingest it",
}

type watcherFlags struct {
	location string
	group    string
	name     string
	dryRun   bool
}

func (f *watcherFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.location, "location", "l", "", "Azure region of the Network Watcher, e.g. westeurope")
	cmd.Flags().StringVar(&f.group, "watcher-group", watcher.DefaultWatcherGroup, "resource group of the Network Watcher")
	cmd.Flags().StringVar(&f.name, "watcher-name", "", "Network Watcher name (looked up by location when empty)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "apply to an in-memory graph and print it")
}

func (f *watcherFlags) resolve(ctx context.Context, client *watcher.Client) (watcher.Watcher, error) {
	if f.name != "" {
		return watcher.Watcher{ResourceGroup: f.group, Name: f.name, Location: f.location}, nil
	}
	if f.location == "" {
		return watcher.Watcher{}, errors.New("either --location or --watcher-name is required")
	}
	return client.FindWatcher(ctx, f.location)
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.PersistentFlags().String("subscription", "", "Azure subscription id (default: the only enabled subscription)")
	bindFlags(collectCmd.PersistentFlags(), map[string]string{"subscription": "azure.subscription"})

	collectCmd.AddCommand(newCollectTopologyCmd(), newCollectConnectivityCmd())
}

// azureClient authenticates with the default Azure credential chain.
func azureClient(ctx context.Context) (*watcher.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get Azure credentials: %w", err)
	}

	subscription := viper.GetString("azure.subscription")
	if subscription == "" {
		subscription, err = watcher.DefaultSubscription(ctx, cred)
		if err != nil {
			return nil, err
		}
	}
	message.Info("Using subscription %s", subscription)

	return watcher.New(subscription, cred, nil)
}

// topologyTarget selects the single scope named by the topology flags.
func topologyTarget(w watcher.Watcher, resourceGroup, vnetID, subnetID string) (watcher.Target, error) {
	switch {
	case vnetID != "":
		return watcher.Target{Watcher: w, VirtualNetworkID: vnetID}, nil
	case subnetID != "":
		return watcher.Target{Watcher: w, SubnetID: subnetID}, nil
	case resourceGroup != "":
		return watcher.Target{Watcher: w, ResourceGroup: resourceGroup}, nil
	default:
		return watcher.Target{}, errors.New("one of --resource-group, --virtual-network, --subnet or --all is required")
	}
}

type vmLister interface {
	VirtualMachines(ctx context.Context, resourceGroup string) ([]string, error)
}

// connectivitySources returns the source ids to check from: source itself,
// or every virtual machine of sourceGroup.
func connectivitySources(ctx context.Context, vms vmLister, source, sourceGroup string) ([]string, error) {
	if sourceGroup == "" {
		if source == "" {
			return nil, errors.New("one of --source or --source-group is required")
		}
		return []string{source}, nil
	}

	sources, err := vms.VirtualMachines(ctx, sourceGroup)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("resource group %s has no virtual machines to check from", sourceGroup)
	}
	return sources, nil
}

func newCollectTopologyCmd() *cobra.Command {
	var (
		wf            watcherFlags
		resourceGroup string
		vnetID        string
		subnetID      string
		all           bool
	)

	c := &cobra.Command{
		Use:   "topology",
		Short: "Fetch resource-group topologies and ingest them",
		Example: `  aztopo collect topology -l westeurope --resource-group rg-net
  aztopo collect topology -l westeurope --all --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := azureClient(ctx)
			if err != nil {
				return err
			}
			w, err := wf.resolve(ctx, client)
			if err != nil {
				return err
			}

			var targets []watcher.Target
			if all {
				groups, err := client.ResourceGroups(ctx)
				if err != nil {
					return err
				}
				for _, rg := range groups {
					targets = append(targets, watcher.Target{Watcher: w, ResourceGroup: rg})
				}
			} else {
				target, err := topologyTarget(w, resourceGroup, vnetID, subnetID)
				if err != nil {
					return err
				}
				targets = append(targets, target)
			}

			var failed int
			for _, target := range targets {
				err := runIngest(cmd, ingest.KindTopology, wf.dryRun, func(sink graph.Sink, opts ingest.Options) (*ingest.Report, error) {
					topo, err := client.Topology(ctx, target)
					if err != nil {
						return &ingest.Report{Kind: ingest.KindTopology}, err
					}
					intents, err := ingest.BuildTopology(topo)
					if err != nil {
						return &ingest.Report{Kind: ingest.KindTopology}, err
					}
					return ingest.RunIntents(ctx, sink, ingest.KindTopology, intents, opts)
				})
				if err != nil {
					failed++
					message.Warning("%s: %v", target, err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d topologies failed", failed, len(targets))
			}
			return nil
		},
	}

	wf.register(c)
	c.Flags().StringVarP(&resourceGroup, "resource-group", "g", "", "resource group to map")
	c.Flags().StringVar(&vnetID, "virtual-network", "", "virtual network resource id to map")
	c.Flags().StringVar(&subnetID, "subnet", "", "subnet resource id to map")
	c.Flags().BoolVar(&all, "all", false, "map every resource group of the subscription")
	c.MarkFlagsMutuallyExclusive("resource-group", "virtual-network", "subnet", "all")
	return c
}

func newCollectConnectivityCmd() *cobra.Command {
	var (
		wf          watcherFlags
		source      string
		sourceGroup string
		req         watcher.ConnectivityRequest
	)

	c := &cobra.Command{
		Use:   "connectivity",
		Short: "Run a connectivity check and ingest its hops",
		Example: `  aztopo collect connectivity -l westeurope --source <vm id> --dest-address 13.107.21.200 --port 443
  aztopo collect connectivity -l westeurope --source-group rg-app --dest-id <vm id> --port 22`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := azureClient(ctx)
			if err != nil {
				return err
			}
			w, err := wf.resolve(ctx, client)
			if err != nil {
				return err
			}
			req.Watcher = w

			sources, err := connectivitySources(ctx, client, source, sourceGroup)
			if err != nil {
				return err
			}

			var failed int
			for _, src := range sources {
				r := req
				r.SourceID = src
				err := runIngest(cmd, ingest.KindConnectivity, wf.dryRun, func(sink graph.Sink, opts ingest.Options) (*ingest.Report, error) {
					check, err := client.CheckConnectivity(ctx, r)
					if err != nil {
						return &ingest.Report{Kind: ingest.KindConnectivity}, err
					}
					message.Info("%s: %s, %d hops", src, check.ConnectionStatus, len(check.Hops))
					intents, err := ingest.BuildConnectivity(check)
					if err != nil {
						return &ingest.Report{Kind: ingest.KindConnectivity}, err
					}
					return ingest.RunIntents(ctx, sink, ingest.KindConnectivity, intents, opts)
				})
				if err != nil {
					failed++
					message.Warning("%s: %v", src, err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d connectivity checks failed", failed, len(sources))
			}
			return nil
		},
	}

	wf.register(c)
	c.Flags().StringVar(&source, "source", "", "source virtual machine resource id")
	c.Flags().StringVar(&sourceGroup, "source-group", "", "check from every virtual machine in this resource group")
	c.Flags().Int32Var(&req.SourcePort, "source-port", 0, "source port (chosen by Azure when 0)")
	c.Flags().StringVar(&req.DestinationID, "dest-id", "", "destination resource id")
	c.Flags().StringVar(&req.DestinationAddress, "dest-address", "", "destination IP address or hostname")
	c.Flags().Int32Var(&req.Port, "port", 0, "destination port")
	c.Flags().StringVar(&req.Protocol, "protocol", "Tcp", "Tcp, Http, Https or Icmp")
	c.MarkFlagsMutuallyExclusive("dest-id", "dest-address")
	c.MarkFlagsMutuallyExclusive("source", "source-group")
	return c
}
