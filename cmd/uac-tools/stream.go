package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nExtCamera/libuac"
	"github.com/nExtCamera/libuac/pkg/descriptors"
)

var (
	streamDevicePath string
	streamChannels   uint8
	streamRate       uint32
	streamDuration   time.Duration
	streamOutput     string
	streamBurst      int
	streamConfigFile string
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Capture PCM audio from a device to a WAV file",
	RunE:  runStream,
}

func init() {
	flags := streamCmd.Flags()
	flags.StringVar(&streamDevicePath, "device", "", "USB device path (e.g. /dev/bus/usb/001/003)")
	flags.Uint8Var(&streamChannels, "channels", 2, "requested channel count")
	flags.Uint32Var(&streamRate, "rate", 48000, "requested sample rate in Hz")
	flags.DurationVar(&streamDuration, "duration", 10*time.Second, "recording duration")
	flags.StringVar(&streamOutput, "output", "capture.wav", "output WAV file path")
	flags.IntVar(&streamBurst, "burst", 8, "isochronous packets per submitted transfer")
	flags.StringVar(&streamConfigFile, "config", "", "optional config file overriding the flags above")
	rootCmd.AddCommand(streamCmd)

	viper.BindPFlags(flags)
}

func runStream(cmd *cobra.Command, args []string) error {
	if streamConfigFile != "" {
		viper.SetConfigFile(streamConfigFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", streamConfigFile, err)
		}
		streamDevicePath = viper.GetString("device")
		streamChannels = uint8(viper.GetUint32("channels"))
		streamRate = uint32(viper.GetUint32("rate"))
		streamDuration = viper.GetDuration("duration")
		streamOutput = viper.GetString("output")
		streamBurst = viper.GetInt("burst")
	}

	if streamDevicePath == "" {
		return fmt.Errorf("--device (or a config file setting \"device\") is required")
	}

	handle, closeHandle, err := openDevicePath(streamDevicePath)
	if err != nil {
		return err
	}
	defer closeHandle()

	si, cfg, err := pickStreamConfig(handle, streamChannels, streamRate)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"interface": si.InterfaceNumber,
		"altSetting": cfg.AltSetting,
		"channels": cfg.ChannelCount,
		"rate": cfg.SampleRate,
		"bitResolution": cfg.BitResolution,
	}).Info("uac-tools: selected stream configuration")

	outFile, err := os.Create(streamOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", streamOutput, err)
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, int(cfg.SampleRate), int(cfg.BitResolution), int(cfg.ChannelCount), 1)
	defer enc.Close()

	frames := make(chan []byte, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range frames {
			buf := &audio.IntBuffer{
				Format:         &audio.Format{NumChannels: int(cfg.ChannelCount), SampleRate: int(cfg.SampleRate)},
				Data:           decodeSamples(data, int(cfg.SubframeSize)),
				SourceBitDepth: int(cfg.BitResolution),
			}
			if err := enc.Write(buf); err != nil {
				logrus.WithError(err).Warn("uac-tools: failed writing captured samples")
			}
		}
	}()

	stream, err := handle.StartStreaming(si, cfg, func(data []byte) {
		cp := make([]byte, len(data))
		copy(cp, data)
		select {
		case frames <- cp:
		default:
			logrus.Warn("uac-tools: dropping packet, encoder falling behind")
		}
	}, streamBurst)
	if err != nil {
		close(frames)
		return fmt.Errorf("start streaming: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	timer := time.NewTimer(streamDuration)
	select {
	case <-timer.C:
	case <-sigCh:
		timer.Stop()
		fmt.Println("\ninterrupted, stopping capture")
	}

	if err := stream.Stop(); err != nil {
		logrus.WithError(err).Warn("uac-tools: error stopping stream")
	}
	close(frames)
	<-done

	return nil
}

// pickStreamConfig finds the first streaming interface able to satisfy the
// requested channel count and sample rate at PCM.
func pickStreamConfig(handle *uac.DeviceHandle, channels uint8, rate uint32) (*descriptors.AudioStreamingInterface, descriptors.StreamConfig, error) {
	for _, si := range handle.Device().AudioStreamingInterfaces() {
		if cfg, ok := si.QueryConfig(descriptors.FormatTagPCM, channels, rate); ok {
			return si, cfg, nil
		}
	}
	return nil, descriptors.StreamConfig{}, fmt.Errorf("no streaming interface offers PCM at %d channel(s)/%d Hz", channels, rate)
}

// decodeSamples unpacks little-endian signed PCM samples of the given
// subframe width (bytes per sample per channel) into go-audio's flat,
// per-frame-interleaved int slice.
func decodeSamples(data []byte, subframeSize int) []int {
	if subframeSize <= 0 {
		return nil
	}
	n := len(data) / subframeSize
	out := make([]int, n)
	for i := 0; i < n; i++ {
		off := i * subframeSize
		var v int32
		for b := subframeSize - 1; b >= 0; b-- {
			v = v<<8 | int32(data[off+b])
		}
		shift := uint(32 - 8*subframeSize)
		v = v << shift >> shift // sign-extend from subframeSize*8 bits
		out[i] = int(v)
	}
	return out
}
