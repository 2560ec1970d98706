package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nExtCamera/libuac"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Enumerate USB Audio Class devices and their topology",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := uac.Create()
	defer ctx.Close()

	devices, err := ctx.QueryAllDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no UAC-capable devices found")
		return nil
	}

	bold := color.New(color.Bold)
	for _, dev := range devices {
		bold.Printf("%04x:%04x\n", dev.VendorID(), dev.ProductID())

		for _, route := range dev.Routes() {
			root := dev.Graph().Nodes[route.Output]
			label := color.GreenString("route")
			if route.Malformed {
				label = color.RedString("route (cyclic, truncated)")
			}
			fmt.Printf("  %s: output terminal 0x%04x, %d node(s)\n", label, uint16(root.TerminalType), len(route.Nodes))
		}

		for _, si := range dev.AudioStreamingInterfaces() {
			fmt.Printf("  streaming interface %d: %d alt setting(s), formats %v\n",
				si.InterfaceNumber, len(si.AlternateSettings), si.AudioFormats())
		}
	}
	return nil
}
