//go:build !linux && !darwin

package main

// disableInputEcho is a no-op where termios is unavailable.
func disableInputEcho(int) (func(), error) {
	return nil, nil
}
