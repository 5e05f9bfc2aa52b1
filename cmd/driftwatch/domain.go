package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/pkg/manager"
)

var domainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Manage the monitored domain list",
}

func init() {
	domainCmd.AddCommand(domainListCmd)
	domainCmd.AddCommand(domainAddCmd)
	domainCmd.AddCommand(domainRemoveCmd)
	domainCmd.AddCommand(domainRemoveTreeCmd)
}

var domainListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitored domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		lists, err := rt.mgr.ListDomains()
		if err != nil {
			return err
		}

		fmt.Printf("Static (%d):\n", len(lists.Static))
		for _, d := range lists.Static {
			fmt.Printf("  %s\n", d)
		}
		fmt.Printf("Dynamic (%d):\n", len(lists.Dynamic))
		for _, d := range lists.Dynamic {
			fmt.Printf("  %s\n", d)
		}
		return nil
	},
}

var domainAddCmd = &cobra.Command{
	Use:   "add [fqdn]",
	Short: "Add a domain to monitoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.mgr.AddDynamic(args[0])
		if result == manager.AddInvalid {
			return err
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", args[0], result)
		return nil
	},
}

var domainRemoveCmd = &cobra.Command{
	Use:   "remove [fqdn]",
	Short: "Remove a dynamic domain from monitoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.mgr.RemoveDynamic(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", args[0], result)
		return nil
	},
}

var domainRemoveTreeCmd = &cobra.Command{
	Use:   "remove-tree [fqdn]",
	Short: "Remove a domain and every stored domain under it",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		removed, err := rt.mgr.RemoveSubtree(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d domains: %s\n", len(removed), strings.Join(removed, ", "))
		return nil
	},
	Args: cobra.ExactArgs(1),
}

var checkCmd = &cobra.Command{
	Use:   "check [fqdn]",
	Short: "Resolve a domain once and show the live answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		res, ms, err := rt.mgr.CheckOnce(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("IPs:    %s\n", strings.Join(res.IPs(), ", "))
		fmt.Printf("TTL:    %ds\n", res.TTL())
		fmt.Printf("Status: %d\n", res.Status)
		if res.SOA != nil {
			fmt.Printf("SOA:    %s (serial %s, admin %s)\n", res.SOA.PrimaryNS, res.SOA.Serial, res.SOA.AdminEmail)
		}
		if res.NoAuthority {
			fmt.Println("Warning: no reachable authority")
		}
		fmt.Printf("Stored: state=%s ips=%s\n", ms.State, strings.Join(ms.LastIPs, ", "))
		return nil
	},
}

var dampeningCmd = &cobra.Command{
	Use:   "dampening",
	Short: "Inspect or reset notification dampening",
}

func init() {
	dampeningCmd.AddCommand(dampeningGetCmd)
	dampeningCmd.AddCommand(dampeningClearCmd)
}

var dampeningGetCmd = &cobra.Command{
	Use:   "get [fqdn]",
	Short: "Show a domain's dampening state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		info, err := rt.mgr.GetDampening(args[0])
		if err != nil {
			return err
		}

		if info.LastNotificationAt.IsZero() {
			fmt.Println("Last notification: never")
		} else {
			fmt.Printf("Last notification: %s\n", info.LastNotificationAt.Format(time.RFC3339))
		}
		fmt.Printf("Changes in last hour: %d\n", info.ChangesInLastHour)
		fmt.Printf("History entries: %d\n", info.HistoryEntries)
		return nil
	},
}

var dampeningClearCmd = &cobra.Command{
	Use:   "clear [fqdn]",
	Short: "Clear a domain's dampening state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.mgr.ClearDampening(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s: dampening cleared\n", args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [fqdn]",
	Short: "Show the stored monitoring state for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		info, err := rt.mgr.GetStatus(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Domain:      %s (%s)\n", info.Domain, info.Provenance)
		fmt.Printf("State:       %s\n", info.State)
		fmt.Printf("Current IPs: %s\n", strings.Join(info.CurrentIPs, ", "))
		fmt.Printf("Last serial: %s\n", info.LastSerial)
		if !info.LastChecked.IsZero() {
			fmt.Printf("Last change: %s\n", info.LastChecked.Format(time.RFC3339))
		}
		return nil
	},
}
