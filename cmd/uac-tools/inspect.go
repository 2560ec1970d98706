package main

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mjibson/go-dsp/fft"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/nExtCamera/libuac"
	"github.com/nExtCamera/libuac/pkg/descriptors"
)

var (
	inspectDevicePath string
	inspectTUI        bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump a device's parsed topology and capability set",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDevicePath, "device", "", "USB device path (e.g. /dev/bus/usb/001/003)")
	inspectCmd.Flags().BoolVar(&inspectTUI, "tui", false, "open an interactive topology/level-meter browser")
	inspectCmd.MarkFlagRequired("device")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	handle, closeHandle, err := openDevicePath(inspectDevicePath)
	if err != nil {
		return err
	}
	defer closeHandle()

	if !inspectTUI {
		fmt.Print(handle.Dump())
		return nil
	}
	return runInspectTUI(handle)
}

// levelMeter tracks a running peak/RMS estimate and a short-term FFT
// spectrum over a live stream's captured frames, adapted from the device's
// earlier frame-statistics tooling but driven by PCM audio rather than
// video frames.
type levelMeter struct {
	recording atomic.Bool
	peak      float32
	rms       float32

	window   []float32
	fftSize  int
	spectrum []float64
}

func newLevelMeter() *levelMeter {
	fftSize := 1024
	return &levelMeter{fftSize: fftSize, spectrum: make([]float64, fftSize/2)}
}

func (m *levelMeter) addFrame(data []byte, subframeSize, channels int) {
	if !m.recording.Load() || subframeSize <= 0 {
		return
	}
	samples := decodeSamples(data, subframeSize)
	if len(samples) == 0 {
		return
	}
	maxVal := float32(int64(1) << (8*subframeSize - 1))

	var rmsSum float32
	var peakMax float32
	for i := 0; i < len(samples); i += channels {
		s := float32(samples[i]) / maxVal
		abs := float32(math.Abs(float64(s)))
		if abs > peakMax {
			peakMax = abs
		}
		rmsSum += s * s
		m.window = append(m.window, s)
	}
	if over := len(m.window) - m.fftSize; over > 0 {
		m.window = m.window[over:]
	}

	n := len(samples) / channels
	if n > 0 {
		currentRMS := float32(math.Sqrt(float64(rmsSum / float32(n))))
		m.peak = m.peak*0.9 + peakMax*0.1
		m.rms = m.rms*0.9 + currentRMS*0.1
	}
}

func (m *levelMeter) updateSpectrum() {
	if len(m.window) < m.fftSize {
		return
	}
	input := make([]complex128, m.fftSize)
	for i, s := range m.window[len(m.window)-m.fftSize:] {
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(m.fftSize-1))
		input[i] = complex(float64(s)*w, 0)
	}
	out := fft.FFT(input)
	for i := range m.spectrum {
		mag := cmplx.Abs(out[i])
		if mag > 0 {
			m.spectrum[i] = 20 * math.Log10(mag)
		} else {
			m.spectrum[i] = -120
		}
	}
}

func (m *levelMeter) statistics() string {
	peakDB, rmsDB := -120.0, -120.0
	if m.peak > 0 {
		peakDB = 20 * math.Log10(float64(m.peak))
	}
	if m.rms > 0 {
		rmsDB = 20 * math.Log10(float64(m.rms))
	}
	return fmt.Sprintf("peak: %6.1f dB   rms: %6.1f dB", peakDB, rmsDB)
}

func (m *levelMeter) spectrumBars(width int) string {
	m.updateSpectrum()
	if width <= 0 || len(m.spectrum) == 0 {
		return ""
	}
	bins := len(m.spectrum) / 2
	if bins > width {
		bins = width
	}
	perCol := len(m.spectrum) / 2 / width
	if perCol == 0 {
		perCol = 1
	}
	glyphs := []rune(" ░▒▓█")
	var b strings.Builder
	for x := 0; x*perCol < bins; x++ {
		sum := 0.0
		count := 0
		for i := 0; i < perCol && x*perCol+i < bins; i++ {
			sum += m.spectrum[x*perCol+i]
			count++
		}
		avg := sum / float64(count)
		norm := (avg + 60) / 60
		if norm < 0 {
			norm = 0
		}
		if norm > 1 {
			norm = 1
		}
		idx := int(norm * float64(len(glyphs)-1))
		b.WriteRune(glyphs[idx])
	}
	return b.String()
}

func runInspectTUI(handle *uac.DeviceHandle) error {
	dev := handle.Device()
	app := tview.NewApplication()

	ifaceList := tview.NewList()
	ifaceList.SetBorder(true).SetTitle("Streaming Interfaces")

	statsView := tview.NewTextView().SetDynamicColors(true)
	statsView.SetBorder(true).SetTitle("Level Meter")

	logView := tview.NewTextView()
	logView.SetBorder(true).SetTitle("Log").SetMaxLines(10)

	logf := func(format string, args ...interface{}) {
		fmt.Fprintf(logView, format+"\n", args...)
	}

	var activeStream *uac.StreamHandle
	var activeMeter *levelMeter
	generation := &atomic.Uint32{}

	stopActive := func() {
		generation.Add(1)
		if activeStream != nil {
			activeStream.Stop()
			activeStream = nil
		}
		activeMeter = nil
	}

	for _, si := range dev.AudioStreamingInterfaces() {
		si := si
		title := fmt.Sprintf("Interface %d", si.InterfaceNumber)
		subtitle := fmt.Sprintf("formats %v", si.AudioFormats())
		ifaceList.AddItem(title, subtitle, 0, func() {
			stopActive()

			rate := pickFirstRate(si)
			channels := pickFirstChannels(si)
			cfg, ok := si.QueryConfig(descriptors.FormatTagAny, channels, rate)
			if !ok {
				logf("no usable configuration on interface %d", si.InterfaceNumber)
				return
			}

			meter := newLevelMeter()
			meter.recording.Store(true)
			myGen := generation.Load()

			stream, err := handle.StartStreaming(si, cfg, func(data []byte) {
				if generation.Load() != myGen {
					return
				}
				meter.addFrame(data, int(cfg.SubframeSize), int(cfg.ChannelCount))
			}, 8)
			if err != nil {
				logf("failed to start streaming on interface %d: %v", si.InterfaceNumber, err)
				return
			}
			activeStream = stream
			activeMeter = meter
			logf("streaming interface %d at %dch/%dHz", si.InterfaceNumber, cfg.ChannelCount, cfg.SampleRate)
		})
	}

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if activeMeter == nil {
				continue
			}
			_, _, width, _ := statsView.GetInnerRect()
			text := activeMeter.statistics() + "\n" + activeMeter.spectrumBars(width)
			app.QueueUpdateDraw(func() {
				statsView.SetText(text)
			})
		}
	}()

	ifaceList.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			stopActive()
			return nil
		}
		return event
	})

	flex := tview.NewFlex().
		AddItem(ifaceList, 0, 1, true).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(statsView, 0, 2, false).
			AddItem(logView, 0, 1, false), 0, 2, false)

	err := app.SetRoot(flex, true).Run()
	stopActive()
	return err
}

func pickFirstRate(si *descriptors.AudioStreamingInterface) uint32 {
	rates := si.SampleRates(descriptors.FormatTagAny)
	if len(rates) == 0 {
		return 48000
	}
	return rates[0]
}

func pickFirstChannels(si *descriptors.AudioStreamingInterface) uint8 {
	counts := si.ChannelCounts(descriptors.FormatTagAny)
	if len(counts) == 0 {
		return 2
	}
	return counts[0]
}
