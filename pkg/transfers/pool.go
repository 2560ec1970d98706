package transfers

import (
	"sync"
	"sync/atomic"

	usb "github.com/kevmo314/go-usb"
	"github.com/sirupsen/logrus"
)

// numIsoTransfers is the depth of the isochronous transfer pool kept
// in flight at all times. libuvc-derived implementations default to a
// much larger pool sized for video; for a single audio stream a shallower
// pool keeps latency down without starving the endpoint.
const numIsoTransfers = 8

// RuntimeStatus reports a non-fatal condition observed while streaming.
// None of these stop the pool; they are surfaced so a caller can log or
// count them.
type RuntimeStatus int

const (
	StatusOK RuntimeStatus = iota
	// StatusKernelMalfunction is reported when a completed packet's actual
	// length exceeds what the endpoint's wMaxPacketSize allows, which can
	// only happen if the kernel handed back a corrupt completion.
	StatusKernelMalfunction
	// StatusTransfersWithered is reported once the in-flight transfer
	// count reaches zero outside of an explicit Stop, meaning every
	// transfer in the pool has been dropped.
	StatusTransfersWithered
)

// TransferPool drives a fixed-size pool of isochronous transfers against
// one endpoint, dispatching completed packet payloads to onPayload from
// whichever pool goroutine completed them. Callers needing ordering must
// serialize inside onPayload themselves.
type TransferPool struct {
	handle *usb.DeviceHandle

	transfers []*usb.IsochronousTransfer
	active    atomic.Bool

	mu       sync.Mutex
	cond     *sync.Cond
	inFlight int

	packetSize int

	onPayload func(data []byte)
	onStatus  func(RuntimeStatus)
}

// NewTransferPool allocates up to numIsoTransfers isochronous transfers of
// packetsPerTransfer packets each, sized packetSize, against
// endpointAddress. If an allocation fails, the pool keeps the transfers
// allocated before it; it fails only when none could be allocated.
// Transfers are allocated but not yet submitted; call Start to begin
// streaming.
func NewTransferPool(handle *usb.DeviceHandle, endpointAddress uint8, packetsPerTransfer int, packetSize uint16, onPayload func([]byte), onStatus func(RuntimeStatus)) (*TransferPool, error) {
	p := &TransferPool{
		handle:     handle,
		packetSize: int(packetSize),
		onPayload:  onPayload,
		onStatus:   onStatus,
	}
	p.cond = sync.NewCond(&p.mu)

	p.transfers = make([]*usb.IsochronousTransfer, numIsoTransfers)
	for i := range p.transfers {
		tx, err := handle.NewIsochronousTransfer(endpointAddress, packetsPerTransfer, int(packetSize))
		if err != nil {
			if i == 0 {
				return nil, err
			}
			p.transfers = p.transfers[:i]
			break
		}
		p.transfers[i] = tx
	}
	return p, nil
}

// Start submits every transfer in the pool and begins dispatching
// completions. Transfers that fail to submit are left out and the rest
// keep streaming; Start returns an error only when no transfer could be
// submitted. Safe to call once; calling Start twice resubmits transfers
// that are already in flight.
func (p *TransferPool) Start() error {
	p.active.Store(true)
	var firstErr error
	submitted := 0
	for _, tx := range p.transfers {
		if err := tx.Submit(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		submitted++
		p.mu.Lock()
		p.inFlight++
		p.mu.Unlock()
		go p.pump(tx)
	}
	if submitted == 0 {
		p.active.Store(false)
		return firstErr
	}
	return nil
}

// Stop deactivates the pool, cancels every in-flight transfer, and blocks
// until every pool goroutine has observed the cancellation and exited.
func (p *TransferPool) Stop() {
	p.active.Store(false)
	for _, tx := range p.transfers {
		tx.Cancel()
	}
	p.mu.Lock()
	for p.inFlight > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

func (p *TransferPool) drop() {
	p.mu.Lock()
	p.inFlight--
	wasLast := p.inFlight == 0
	p.cond.Broadcast()
	p.mu.Unlock()
	if wasLast && p.active.Load() && p.onStatus != nil {
		p.onStatus(StatusTransfersWithered)
	}
}

// pump repeatedly waits for tx's completion, dispatches its packets, and
// resubmits it, until the pool is stopped or the transfer itself reports a
// condition that makes resubmission pointless.
func (p *TransferPool) pump(tx *usb.IsochronousTransfer) {
	for {
		if err := tx.Wait(); err != nil {
			p.drop()
			return
		}

		for i, pkt := range tx.Packets() {
			switch pkt.Status {
			case usb.TransferCancelled, usb.TransferError, usb.TransferStall, usb.TransferNoDevice, usb.TransferOverflow:
				p.drop()
				return
			}
			if pkt.ActualLength == 0 {
				continue
			}
			if int(pkt.ActualLength) > p.packetSize {
				logrus.WithFields(logrus.Fields{"actualLength": pkt.ActualLength, "packetSize": p.packetSize}).Warn("uac: isochronous packet reports impossible actual length, dropping transfer")
				if p.onStatus != nil {
					p.onStatus(StatusKernelMalfunction)
				}
				p.drop()
				return
			}
			data, err := tx.IsoPacketBuffer(i)
			if err != nil {
				continue
			}
			if p.onPayload != nil {
				p.onPayload(data[:pkt.ActualLength])
			}
		}

		if !p.active.Load() {
			p.drop()
			return
		}
		if err := tx.Submit(); err != nil {
			p.drop()
			return
		}
	}
}
