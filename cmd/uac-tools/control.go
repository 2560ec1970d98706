package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var controlDevicePath string

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Read mute and volume state off a device's feature unit",
	RunE:  runControl,
}

func init() {
	controlCmd.Flags().StringVar(&controlDevicePath, "device", "", "USB device path (e.g. /dev/bus/usb/001/003)")
	controlCmd.MarkFlagRequired("device")
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	handle, closeHandle, err := openDevicePath(controlDevicePath)
	if err != nil {
		return err
	}
	defer closeHandle()

	routes := handle.Device().Routes()
	if len(routes) == 0 {
		return fmt.Errorf("no audio routes on this device")
	}
	route := routes[0]

	if muted, err := handle.IsMasterMuted(route); err != nil {
		color.Yellow("mute: not supported (%v)", err)
	} else {
		fmt.Printf("mute: %v\n", muted)
	}

	if volume, err := handle.GetFeatureMasterVolume(route); err != nil {
		color.Yellow("volume: not supported (%v)", err)
	} else {
		fmt.Printf("volume: %.2f dB\n", float32(volume)/256.0)
	}
	return nil
}
