//go:build linux || darwin

package main

import "golang.org/x/sys/unix"

// disableInputEcho clears ECHO on fd and returns a func that puts the saved
// termios back.
func disableInputEcho(fd int) (func(), error) {
	saved, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, err
	}

	quiet := *saved
	quiet.Lflag &^= unix.ECHO
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &quiet); err != nil {
		return nil, err
	}
	return func() { _ = unix.IoctlSetTermios(fd, ioctlSetTermios, saved) }, nil
}
