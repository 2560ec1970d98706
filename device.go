package uac

import (
	"fmt"

	usb "github.com/kevmo314/go-usb"

	"github.com/nExtCamera/libuac/pkg/descriptors"
	"github.com/nExtCamera/libuac/pkg/topology"
)

const (
	classAudio           = 1
	subclassAudioControl = 1
	subclassAudioStream  = 2
)

// Device is a USB device that was found to carry a usable UAC 1.0 audio
// function during enumeration. It is immutable after construction:
// re-scan by re-enumerating rather than mutating a Device in place.
type Device struct {
	ctx *Context
	raw *usb.Device

	vendorID, productID uint16

	ac                *descriptors.AudioControlInterface
	streamIfaces      []*descriptors.AudioStreamingInterface
	graph             *topology.Graph
	routes            []*topology.Route
	quirkSwapChannels bool
}

func (d *Device) VendorID() uint16  { return d.vendorID }
func (d *Device) ProductID() uint16 { return d.productID }

// AudioControlInterface returns the parsed AudioControl interface this
// device was scanned from.
func (d *Device) AudioControlInterface() *descriptors.AudioControlInterface { return d.ac }

// AudioStreamingInterfaces returns every audio-streaming interface this
// device declared and the parser accepted.
func (d *Device) AudioStreamingInterfaces() []*descriptors.AudioStreamingInterface {
	return d.streamIfaces
}

// Graph returns the topology arena built from this device's AudioControl
// interface; route indices from Routes are indices into Graph.Nodes.
func (d *Device) Graph() *topology.Graph { return d.graph }

// Routes returns the resolved audio route, one per output terminal, in
// declaration order.
func (d *Device) Routes() []*topology.Route { return d.routes }

// HasQuirkSwapChannels reports whether a device quirk asks the stream
// engine to skip one subframe at the start of each stream.
func (d *Device) HasQuirkSwapChannels() bool { return d.quirkSwapChannels }

// probe opens raw transiently to scan its configuration descriptor, then
// closes it; the long-lived handle used for streaming comes from a later
// call to Open.
func probe(ctx *Context, raw *usb.Device) (*Device, error) {
	handle, err := raw.Open()
	if err != nil {
		return nil, newError(UsbError, "probe", err)
	}
	defer handle.Close()
	return scanOpenHandle(ctx, raw, handle)
}

func scanOpenHandle(ctx *Context, raw *usb.Device, handle *usb.DeviceHandle) (*Device, error) {
	configDesc, err := handle.GetActiveConfigDescriptor()
	if err != nil {
		configDesc, err = handle.ConfigDescriptorByValue(0)
	}
	if err != nil {
		return nil, newError(UsbError, "scan", err)
	}

	ac, streamIfaces, err := parseConfig(configDesc)
	if err != nil {
		return nil, newError(InvalidDevice, "scan", err)
	}

	var vendorID, productID uint16
	if desc, err := handle.GetDeviceDescriptor(); err == nil {
		vendorID, productID = desc.VendorID, desc.ProductID
	} else if raw != nil {
		vendorID, productID = raw.Descriptor.VendorID, raw.Descriptor.ProductID
	}

	dev := &Device{ctx: ctx, raw: raw, vendorID: vendorID, productID: productID, ac: ac, streamIfaces: streamIfaces}

	if q, ok := lookupQuirk(vendorID, productID); ok {
		for _, si := range dev.streamIfaces {
			q.mutate(si)
		}
		dev.quirkSwapChannels = q.swapChannels
	}

	dev.graph, dev.routes = topology.Build(ac)
	return dev, nil
}

// parseConfig locates the AudioControl interface in configDesc, parses it,
// and parses every AudioStreaming interface it names. A streaming
// interface present in configDesc but absent from the header's interface
// collection is silently ignored.
func parseConfig(configDesc *usb.ConfigDescriptor) (*descriptors.AudioControlInterface, []*descriptors.AudioStreamingInterface, error) {
	var acIface *usb.Interface
	var acIfnum uint8
	for i := range configDesc.Interfaces {
		iface := &configDesc.Interfaces[i]
		if len(iface.AltSettings) == 0 {
			continue
		}
		alt0 := iface.AltSettings[0]
		if alt0.InterfaceClass == classAudio && alt0.InterfaceSubClass == subclassAudioControl {
			acIface = iface
			acIfnum = alt0.InterfaceNumber
			break
		}
	}
	if acIface == nil {
		return nil, nil, fmt.Errorf("no audio control interface in configuration")
	}

	ac, err := descriptors.ParseAudioControl(acIfnum, acIface.AltSettings[0].Extra)
	if err != nil {
		return nil, nil, err
	}

	var streamIfaces []*descriptors.AudioStreamingInterface
	for i := range configDesc.Interfaces {
		iface := &configDesc.Interfaces[i]
		if len(iface.AltSettings) == 0 {
			continue
		}
		alt0 := iface.AltSettings[0]
		if alt0.InterfaceClass != classAudio || alt0.InterfaceSubClass != subclassAudioStream {
			continue
		}
		if !ac.NamesInterface(alt0.InterfaceNumber) {
			log.WithField("interface", alt0.InterfaceNumber).Debug("uac: ignoring audio-streaming interface absent from AC header")
			continue
		}

		var raws []descriptors.RawAltSetting
		for _, alt := range iface.AltSettings {
			if alt.AlternateSetting == 0 || len(alt.Endpoints) == 0 {
				continue
			}
			if len(alt.Endpoints) > 1 {
				log.WithFields(map[string]interface{}{
					"interface":    alt0.InterfaceNumber,
					"altSetting":   alt.AlternateSetting,
					"numEndpoints": len(alt.Endpoints),
				}).Debug("uac: discarding alt-setting declaring more than one endpoint")
				continue
			}
			ep := alt.Endpoints[0]
			raws = append(raws, descriptors.RawAltSetting{
				Index: alt.AlternateSetting,
				Extra: alt.Extra,
				Endpoint: descriptors.EndpointInfo{
					Address:       ep.EndpointAddr,
					Attributes:    ep.Attributes,
					MaxPacketSize: ep.MaxPacketSize,
				},
			})
		}

		si, err := descriptors.ParseAudioStreaming(alt0.InterfaceNumber, raws)
		if err != nil || len(si.AlternateSettings) == 0 {
			continue
		}
		streamIfaces = append(streamIfaces, si)
	}

	if len(streamIfaces) == 0 {
		return nil, nil, fmt.Errorf("audio control interface %d: no usable audio-streaming interfaces", acIfnum)
	}
	return ac, streamIfaces, nil
}

// QueryAudioRoutes returns the routes whose output terminal matches termOut
// and which contain a terminal matching termIn (per Route.ContainsTerminal,
// the route's own output terminal counts as well as its input terminals),
// using TerminalType's wildcard-aware family matching. A zero-value
// TerminalType for either argument means "don't filter on this side."
func (d *Device) QueryAudioRoutes(termIn, termOut descriptors.TerminalType) []*topology.Route {
	var out []*topology.Route
	for _, r := range d.routes {
		if termOut != 0 {
			root := d.graph.Nodes[r.Output]
			if !root.TerminalType.MatchesFamily(termOut) {
				continue
			}
		}
		if termIn != 0 && !r.ContainsTerminal(d.graph, termIn) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GetStreamInterface returns the audio-streaming interface whose alt
// settings link to route's output terminal.
func (d *Device) GetStreamInterface(route *topology.Route) (*descriptors.AudioStreamingInterface, error) {
	outputID := d.graph.Nodes[route.Output].ID
	for _, si := range d.streamIfaces {
		for _, alt := range si.AlternateSettings {
			if alt.General.TerminalLink == outputID {
				return si, nil
			}
		}
	}
	return nil, newError(InvalidDevice, "get_stream_interface", fmt.Errorf("no audio-streaming interface links to terminal %d", outputID))
}

// Open claims nothing yet; it opens the underlying USB device and returns
// a handle through which streaming and control operations are performed.
func (d *Device) Open() (*DeviceHandle, error) {
	if d.raw == nil {
		return nil, newError(InvalidArgument, "open", fmt.Errorf("device was obtained via Wrap; it is already open"))
	}
	handle, err := d.raw.Open()
	if err != nil {
		return nil, newError(UsbError, "open", err)
	}
	return &DeviceHandle{device: d, handle: handle}, nil
}
