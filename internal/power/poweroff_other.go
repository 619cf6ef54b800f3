//go:build !linux

package power

import "errors"

func powerOff() error {
	return errors.New("power: power off not supported on this platform (requires Linux)")
}
