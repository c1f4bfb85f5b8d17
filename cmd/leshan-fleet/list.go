package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/ui"
)

var (
	listFormat  string
	listServers bool
)

func init() {
	rootCmd.AddCommand(listCmd)
}

// listCmd implements the 'list' command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the devices a fleet command would act on",
	Long: `Discover registered devices and apply the endpoint and device-type
filters without acting on them.

With --servers, browse mDNS for management servers instead.`,
	Example: `  # Devices whose endpoint contains "gw-"
  leshan-fleet list --filter gw-

  # JSON output for scripting
  leshan-fleet list --device-type nrf9160 --format json

  # Management servers advertised on the local network
  leshan-fleet list --servers`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&endpointFilter, "filter", "", "Only devices whose endpoint contains this string")
	listCmd.Flags().StringVar(&deviceType, "device-type", "", "Only devices whose resource 3/0/1 equals this value")
	listCmd.Flags().StringVar(&listFormat, "format", "table", "Output format (table, json)")
	listCmd.Flags().BoolVar(&listServers, "servers", false, "List management servers found via mDNS")
}

func runList(cmd *cobra.Command, args []string) error {
	if listFormat != "table" && listFormat != "json" {
		return fmt.Errorf("unknown format %q (want table or json)", listFormat)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if listServers {
		scanner := discovery.NewServerScanner()
		scanner.Timeout = scanTimeout
		servers, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}
		if listFormat == "json" {
			return writeJSON(servers)
		}
		if len(servers) == 0 {
			fmt.Println("No management servers found.")
			return nil
		}
		for _, s := range servers {
			fmt.Println(s.String())
		}
		return nil
	}

	client, _, err := newClient(ctx)
	if err != nil {
		return err
	}

	targets, err := discovery.NewDiscoverer(client).ListTargets(ctx, targetFilter())
	if err != nil {
		return fmt.Errorf("target discovery failed: %w", err)
	}

	if listFormat == "json" {
		return writeJSON(targets)
	}

	if ui.IsTerminal(os.Stdout) {
		fmt.Println(ui.RenderTargetTable(targets))
	} else if err := writeTargetColumns(targets); err != nil {
		return err
	}
	fmt.Printf("\n%d device(s)\n", len(targets))
	return nil
}

// writeTargetColumns prints unstyled columns for pipes and scripts
func writeTargetColumns(targets []discovery.Target) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDPOINT\tDEVICE TYPE")
	for _, t := range targets {
		dt := t.DeviceType
		if dt == "" {
			dt = ui.NoDeviceType
		}
		fmt.Fprintf(tw, "%s\t%s\n", t.Endpoint, dt)
	}
	return tw.Flush()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
