package transfers

import (
	"fmt"
	"time"

	usb "github.com/kevmo314/go-usb"

	"github.com/nExtCamera/libuac/pkg/descriptors"
)

const controlTransferTimeout = 1 * time.Second

// GetFeatureCur issues an interface GET_CUR control transfer for a feature
// unit's control selector on the given channel (0 is master), returning
// the raw wire bytes. wLength is 1 for mute, 2 for volume and most other
// tone controls.
func GetFeatureCur(handle *usb.DeviceHandle, interfaceNumber, unitID uint8, sel descriptors.FeatureControlSelector, channel uint8, wLength int) ([]byte, error) {
	wValue := (uint16(sel) << 8) | uint16(channel)
	wIndex := (uint16(unitID) << 8) | uint16(interfaceNumber)

	data := make([]byte, wLength)
	n, err := handle.ControlTransfer(
		descriptors.RequestTypeInterfaceGet,
		descriptors.RequestGetCur,
		wValue,
		wIndex,
		data,
		controlTransferTimeout,
	)
	if err != nil {
		return nil, fmt.Errorf("get feature unit %d control 0x%02x: %w", unitID, sel, err)
	}
	if n < wLength {
		return nil, fmt.Errorf("get feature unit %d control 0x%02x: short response (%d < %d)", unitID, sel, n, wLength)
	}
	return data, nil
}

// IsMuted reads the FU_MUTE_CONTROL of the given feature unit/channel.
func IsMuted(handle *usb.DeviceHandle, interfaceNumber, unitID uint8, channel uint8) (bool, error) {
	data, err := GetFeatureCur(handle, interfaceNumber, unitID, descriptors.MuteControl, channel, 1)
	if err != nil {
		return false, err
	}
	return data[0] != 0, nil
}

// GetVolume reads the FU_VOLUME_CONTROL of the given feature unit/channel,
// returned as the raw signed 16-bit wire value.
func GetVolume(handle *usb.DeviceHandle, interfaceNumber, unitID uint8, channel uint8) (int16, error) {
	data, err := GetFeatureCur(handle, interfaceNumber, unitID, descriptors.VolumeControl, channel, 2)
	if err != nil {
		return 0, err
	}
	return int16(uint16(data[0]) | uint16(data[1])<<8), nil
}

// SetSamplingFrequency issues an endpoint SET_CUR of SAMPLING_FREQ_CONTROL
// carrying rate as the 24-bit little-endian wire value.
func SetSamplingFrequency(handle *usb.DeviceHandle, endpointAddress uint8, rate uint32) error {
	wValue := uint16(descriptors.SamplingFreqControl) << 8
	data := descriptors.EncodeSamplingFrequency(rate)
	_, err := handle.ControlTransfer(
		descriptors.RequestTypeEndpointSet,
		descriptors.RequestSetCur,
		wValue,
		uint16(endpointAddress),
		data,
		controlTransferTimeout,
	)
	if err != nil {
		return fmt.Errorf("set sampling frequency on endpoint 0x%02x: %w", endpointAddress, err)
	}
	return nil
}

// GetSamplingFrequency issues an endpoint GET_CUR of SAMPLING_FREQ_CONTROL.
func GetSamplingFrequency(handle *usb.DeviceHandle, endpointAddress uint8) (uint32, error) {
	wValue := uint16(descriptors.SamplingFreqControl) << 8
	data := make([]byte, 3)
	n, err := handle.ControlTransfer(
		descriptors.RequestTypeEndpointGet,
		descriptors.RequestGetCur,
		wValue,
		uint16(endpointAddress),
		data,
		controlTransferTimeout,
	)
	if err != nil {
		return 0, fmt.Errorf("get sampling frequency on endpoint 0x%02x: %w", endpointAddress, err)
	}
	if n < 3 {
		return 0, fmt.Errorf("get sampling frequency on endpoint 0x%02x: short response", endpointAddress)
	}
	return descriptors.DecodeSamplingFrequency(data), nil
}
