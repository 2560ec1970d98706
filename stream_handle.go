package uac

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nExtCamera/libuac/pkg/descriptors"
	"github.com/nExtCamera/libuac/pkg/transfers"
)

// StreamHandle owns one active isochronous audio stream: its transfer
// pool, the alt-setting it activated, and the device-quirk state carried
// across the stream's lifetime. A StreamHandle survives a Stop; Start can
// be called again to resume, at whatever rate SetSamplingRate last
// targeted.
type StreamHandle struct {
	id uuid.UUID

	handle           *DeviceHandle
	ifaceAC, ifaceAS uint8
	config           descriptors.StreamConfig
	rates            descriptors.RateSpec
	burst            int

	pool   *transfers.TransferPool
	active atomic.Bool

	mu               sync.Mutex
	targetSampleRate uint32

	streamErr atomic.Int32

	swapChannels bool
	offset       int

	callback func([]byte)
}

// StartStreaming resolves cfg's alt-setting against si, builds a
// StreamHandle for it, and starts it.
func (h *DeviceHandle) StartStreaming(si *descriptors.AudioStreamingInterface, cfg descriptors.StreamConfig, callback func([]byte), burst int) (*StreamHandle, error) {
	if burst < 1 {
		return nil, newError(InvalidArgument, "start_streaming", fmt.Errorf("burst must be >= 1, got %d", burst))
	}
	var alt *descriptors.AlternateSetting
	for _, a := range si.AlternateSettings {
		if a.Index == cfg.AltSetting {
			alt = a
			break
		}
	}
	if alt == nil {
		return nil, newError(InvalidArgument, "start_streaming", fmt.Errorf("alt-setting %d not found on interface %d", cfg.AltSetting, si.InterfaceNumber))
	}

	sh := &StreamHandle{
		id:               uuid.New(),
		handle:           h,
		ifaceAC:          h.device.ac.InterfaceNumber,
		ifaceAS:          si.InterfaceNumber,
		config:           cfg,
		targetSampleRate: cfg.SampleRate,
		burst:            burst,
		callback:         callback,
		swapChannels:     h.device.quirkSwapChannels,
	}
	if f := alt.Format.Channelled(); f != nil {
		sh.rates = f.Rates
	}

	if err := sh.Start(); err != nil {
		return nil, err
	}
	return sh, nil
}

// Start claims the AudioControl and AudioStreaming interfaces, programs
// the endpoint's sampling frequency at the most recently targeted rate (if
// the endpoint supports the control), activates the alt-setting, and
// starts a pool of isochronous transfers. On any failure it unwinds
// whatever it already acquired. Calling Start again after Stop resumes
// streaming at a rate changed in the meantime by SetSamplingRate.
func (sh *StreamHandle) Start() error {
	h := sh.handle
	cfg := sh.config
	sh.mu.Lock()
	cfg.SampleRate = sh.targetSampleRate
	sh.mu.Unlock()

	if err := h.handle.ClaimInterface(sh.ifaceAC); err != nil {
		return newError(UsbError, "start_streaming", err)
	}
	if err := h.handle.ClaimInterface(sh.ifaceAS); err != nil {
		h.handle.ReleaseInterface(sh.ifaceAC)
		return newError(UsbError, "start_streaming", err)
	}

	if cfg.SamplingFreqControlSupported {
		if err := transfers.SetSamplingFrequency(h.handle, cfg.EndpointAddress, cfg.SampleRate); err != nil {
			h.handle.ReleaseInterface(sh.ifaceAS)
			h.handle.ReleaseInterface(sh.ifaceAC)
			return newError(UsbError, "start_streaming", err)
		}
	}

	if err := h.handle.SetAltSetting(sh.ifaceAS, cfg.AltSetting); err != nil {
		h.handle.ReleaseInterface(sh.ifaceAS)
		h.handle.ReleaseInterface(sh.ifaceAC)
		return newError(UsbError, "start_streaming", err)
	}

	sh.offset = 0
	if sh.swapChannels {
		sh.offset = int(cfg.SubframeSize)
	}

	pool, err := transfers.NewTransferPool(h.handle, cfg.EndpointAddress, sh.burst, cfg.MaxPacketSize, sh.dispatch, sh.onStatus)
	if err != nil {
		h.handle.SetAltSetting(sh.ifaceAS, 0)
		h.handle.ReleaseInterface(sh.ifaceAS)
		h.handle.ReleaseInterface(sh.ifaceAC)
		return newError(StreamStartFailure, "start_streaming", err)
	}
	if err := pool.Start(); err != nil {
		h.handle.SetAltSetting(sh.ifaceAS, 0)
		h.handle.ReleaseInterface(sh.ifaceAS)
		h.handle.ReleaseInterface(sh.ifaceAC)
		return newError(StreamStartFailure, "start_streaming", err)
	}
	sh.pool = pool
	sh.config = cfg
	sh.active.Store(true)
	log.WithFields(map[string]interface{}{
		"stream":     sh.id,
		"interface":  sh.ifaceAS,
		"altSetting": cfg.AltSetting,
		"sampleRate": cfg.SampleRate,
	}).Debug("uac: stream started")
	return nil
}

// dispatch is the transfer pool's payload callback: it consumes the
// channel-swap quirk's remaining offset, if any, before forwarding the
// packet to the user callback.
func (sh *StreamHandle) dispatch(data []byte) {
	if sh.offset > 0 {
		n := sh.offset
		if n > len(data) {
			n = len(data)
		}
		data = data[n:]
		sh.offset -= n
	}
	if sh.callback != nil {
		sh.callback(data)
	}
}

func (sh *StreamHandle) onStatus(s transfers.RuntimeStatus) {
	sh.streamErr.Store(int32(s))
	log.WithFields(map[string]interface{}{"stream": sh.id, "status": s}).Warn("uac: stream runtime status")
}

// CheckStreamingError returns the most recently observed non-fatal
// streaming runtime condition.
func (sh *StreamHandle) CheckStreamingError() transfers.RuntimeStatus {
	return transfers.RuntimeStatus(sh.streamErr.Load())
}

// SetSamplingRate updates the rate that will be programmed on the next
// Start; it never hot-swaps the rate of an already-running stream. A rate
// of 0 resets to the format's first declared rate.
func (sh *StreamHandle) SetSamplingRate(rate uint32) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if rate == 0 {
		rate = sh.rates.First()
	}
	sh.targetSampleRate = rate
}

// Stop is idempotent: cancels the transfer pool, waits for it to drain,
// reverts the alt-setting, and releases the claimed interfaces.
func (sh *StreamHandle) Stop() error {
	if !sh.active.CompareAndSwap(true, false) {
		return nil
	}
	sh.pool.Stop()

	var firstErr error
	if err := sh.handle.handle.SetAltSetting(sh.ifaceAS, 0); err != nil {
		firstErr = err
	}
	if err := sh.handle.handle.ReleaseInterface(sh.ifaceAS); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := sh.handle.handle.ReleaseInterface(sh.ifaceAC); err != nil && firstErr == nil {
		firstErr = err
	}
	log.WithField("stream", sh.id).Debug("uac: stream stopped")
	if firstErr != nil {
		return newError(UsbError, "stop", firstErr)
	}
	return nil
}
