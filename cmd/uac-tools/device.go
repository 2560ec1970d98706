package main

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/nExtCamera/libuac"
)

// openDevicePath opens the USB device node at path and wraps the resulting
// file descriptor as a UAC device handle. The returned closer releases both
// the handle and the underlying file descriptor, in that order.
func openDevicePath(path string) (*uac.DeviceHandle, func(), error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	ctx := uac.CreateShared()
	handle, err := ctx.Wrap(uintptr(fd))
	if err != nil {
		unix.Close(fd)
		return nil, nil, fmt.Errorf("wrap %s: %w", path, err)
	}

	closer := func() {
		handle.Close()
		unix.Close(fd)
	}
	return handle, closer, nil
}
