package uac

import (
	"sync/atomic"
	"time"

	usb "github.com/kevmo314/go-usb"
)

// Context owns the lifetime of any background work this package needs
// independent of a particular device: the event-pump goroutine, when this
// package is the one that started it. Every Device and DeviceHandle
// obtained through a Context keeps a back-reference to it.
//
// go-usb, unlike the cgo USB libraries this design is modelled on, has no
// central "handle one pending event" call for isochronous completions —
// each transfer's Wait blocks independently, and a stream's transfer pool
// already runs one goroutine per in-flight transfer. The pump goroutine
// here exists to preserve that ownership/lifecycle contract (a Context the
// caller creates owns a thread it can shut down deterministically) even
// though it has no per-event work of its own to do.
type Context struct {
	owned bool
	alive atomic.Bool
	done  chan struct{}
}

// Create starts a private Context and its own event-pump goroutine.
func Create() *Context {
	ctx := &Context{owned: true, done: make(chan struct{})}
	ctx.alive.Store(true)
	go ctx.pump()
	return ctx
}

// CreateShared starts a Context that does not own a background goroutine;
// the caller is responsible for driving whatever event loop it already
// runs. Close on a shared Context is a no-op beyond marking it dead.
func CreateShared() *Context {
	ctx := &Context{owned: false}
	ctx.alive.Store(true)
	return ctx
}

func (c *Context) pump() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.alive.Load() {
				return
			}
		}
	}
}

// Close terminates the owned pump goroutine, if any, and marks the
// Context dead. Devices and handles obtained from a closed Context remain
// individually usable until they are themselves closed.
func (c *Context) Close() {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}
	if c.owned {
		close(c.done)
	}
}

// QueryAllDevices enumerates every USB device reachable by the underlying
// access layer and probes each for a usable UAC audio function. Devices
// that are not audio class, or whose descriptor stream fails to parse,
// are silently skipped rather than failing the whole enumeration.
func (c *Context) QueryAllDevices() ([]*Device, error) {
	raws, err := usb.DeviceList()
	if err != nil {
		return nil, newError(UsbError, "query_all_devices", err)
	}

	var out []*Device
	for i := range raws {
		raw := &raws[i]
		dev, err := probe(c, raw)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"vendorId":  raw.Descriptor.VendorID,
				"productId": raw.Descriptor.ProductID,
			}).WithError(err).Debug("uac: skipping device during enumeration")
			continue
		}
		out = append(out, dev)
	}
	return out, nil
}

// Wrap adopts an already-opened OS-level file descriptor, for sandboxes
// (Android content providers, browser WebUSB bridges) that hand the
// library a pre-authorised handle rather than letting it open the device
// itself.
func (c *Context) Wrap(fd uintptr) (*DeviceHandle, error) {
	handle, err := usb.WrapSysDevice(int(fd))
	if err != nil {
		return nil, newError(UsbError, "wrap", err)
	}
	dev, err := scanOpenHandle(c, nil, handle)
	if err != nil {
		handle.Close()
		return nil, err
	}
	return &DeviceHandle{device: dev, handle: handle}, nil
}
