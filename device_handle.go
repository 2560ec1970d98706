package uac

import (
	"fmt"
	"sync/atomic"

	usb "github.com/kevmo314/go-usb"

	"github.com/nExtCamera/libuac/pkg/descriptors"
	"github.com/nExtCamera/libuac/pkg/topology"
	"github.com/nExtCamera/libuac/pkg/transfers"
)

// DeviceHandle is an opened Device: the object through which control
// reads and streaming are performed.
type DeviceHandle struct {
	device *Device
	handle *usb.DeviceHandle
	closed atomic.Bool
}

// Device returns the parsed Device this handle was opened from.
func (h *DeviceHandle) Device() *Device { return h.device }

// Close releases the underlying USB handle. Safe to call more than once.
func (h *DeviceHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.handle.Close()
}

// Detach releases any interfaces this handle still holds claimed without
// closing the underlying USB handle, for callers that want to hand the
// device off (e.g. back to a kernel driver) without tearing down the
// connection entirely.
func (h *DeviceHandle) Detach() error {
	var firstErr error
	for _, si := range h.device.streamIfaces {
		if err := h.handle.ReleaseInterface(si.InterfaceNumber); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := h.handle.ReleaseInterface(h.device.ac.InterfaceNumber); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// GetName returns a human-readable identifier for the device: its
// vendor/product id pair as "vvvv:pppp". String descriptors are not read.
func (h *DeviceHandle) GetName() string {
	return fmt.Sprintf("%04x:%04x", h.device.vendorID, h.device.productID)
}

// Dump renders a diagnostic summary of the device's parsed audio function:
// its terminals, units, and streaming interfaces.
func (h *DeviceHandle) Dump() string {
	ac := h.device.ac
	s := fmt.Sprintf("audio control interface %d (bcdADC %s)\n", ac.InterfaceNumber, descriptors.BinaryCodedDecimal(ac.Header.BcdADC).VersionString())
	for _, t := range ac.InputTerminals {
		s += fmt.Sprintf("  input terminal %d: type 0x%04x, %d channel(s)\n", t.TerminalID, uint16(t.TerminalType), t.NrChannels)
	}
	for _, t := range ac.OutputTerminals {
		s += fmt.Sprintf("  output terminal %d: type 0x%04x, source %d\n", t.TerminalID, uint16(t.TerminalType), t.SourceID)
	}
	for _, u := range ac.Units {
		s += fmt.Sprintf("  unit %d: sources %v\n", u.UnitID, u.SourceIDs())
	}
	for _, si := range h.device.streamIfaces {
		s += fmt.Sprintf("  streaming interface %d: %d alt setting(s), formats %v\n", si.InterfaceNumber, len(si.AlternateSettings), si.AudioFormats())
	}
	return s
}

func (h *DeviceHandle) firstFeatureUnit(route *topology.Route) (uint8, bool) {
	g := h.device.graph
	root := g.Nodes[route.Output]
	if len(root.Sources) == 0 {
		return 0, false
	}
	src := g.Nodes[root.Sources[0]]
	if src.Kind != topology.NodeUnit {
		return 0, false
	}
	u := h.device.ac.FindUnit(src.ID)
	if u == nil || u.Kind.Feature == nil {
		return 0, false
	}
	return u.UnitID, true
}

// IsMasterMuted reads the master-channel mute state of the feature unit
// adjacent to route's root output terminal.
func (h *DeviceHandle) IsMasterMuted(route *topology.Route) (bool, error) {
	unitID, ok := h.firstFeatureUnit(route)
	if !ok {
		return false, newError(InvalidDevice, "is_master_muted", fmt.Errorf("route has no adjacent feature unit"))
	}
	muted, err := transfers.IsMuted(h.handle, h.device.ac.InterfaceNumber, unitID, 0)
	if err != nil {
		return false, newError(UsbError, "is_master_muted", err)
	}
	return muted, nil
}

// GetFeatureMasterVolume reads the master-channel volume of the feature
// unit adjacent to route's root output terminal, as the raw signed 16-bit
// wire value.
func (h *DeviceHandle) GetFeatureMasterVolume(route *topology.Route) (int16, error) {
	unitID, ok := h.firstFeatureUnit(route)
	if !ok {
		return 0, newError(InvalidDevice, "get_feature_master_volume", fmt.Errorf("route has no adjacent feature unit"))
	}
	volume, err := transfers.GetVolume(h.handle, h.device.ac.InterfaceNumber, unitID, 0)
	if err != nil {
		return 0, newError(UsbError, "get_feature_master_volume", err)
	}
	return volume, nil
}
