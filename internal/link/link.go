// Package link provides the wireless collaborator the peripheral reports
// to, with abstraction for testing.
// Backends publish link establishment and loss through Signals from their
// own goroutines; the poll loop only reads Status.
package link

import (
	"errors"

	"github.com/sweeney/tappie/internal/logic"
)

// ErrNotConnected is returned by Notify when no host is connected.
var ErrNotConnected = errors.New("link: not connected")

// DeviceName is the name the host looks for.
const DeviceName = "TappieV2"

// Host-visible identifiers of the GATT service and its characteristics.
const (
	ServiceUUID       = "738b66f1-91b7-4f25-8ab8-31d38d56541a"
	PositionUUID      = "a9c8c7b4-fb55-4d27-99e4-2c14b5812546"
	EncoderButtonUUID = "0c2f5fbe-c20f-49ec-8c7c-ce0c9358e574"
	MediaSingleUUID   = "9ff67916-665f-4489-b257-46d118b1e5eb"
	MediaDoubleUUID   = "66f1ab02-c93d-44fe-8ca9-5e8bdbb2fe80"
)

// ChannelUUID returns the characteristic UUID of a notification channel.
func ChannelUUID(ch logic.Channel) string {
	switch ch {
	case logic.ChannelPosition:
		return PositionUUID
	case logic.ChannelEncoderGesture:
		return EncoderButtonUUID
	case logic.ChannelMediaGesture:
		return MediaSingleUUID
	case logic.ChannelMediaDouble:
		return MediaDoubleUUID
	}
	return ""
}

// Link is the outbound side of the wireless collaborator.
type Link interface {
	// Status returns the current connection flag and session count.
	// Safe to call from the poll loop at any time.
	Status() logic.LinkStatus

	// Notify sends payload on a channel. Returns ErrNotConnected when no
	// host is connected. Failures must not crash the process.
	Notify(ch logic.Channel, payload string) error

	// Advertise makes the device discoverable again after a loss.
	Advertise() error

	// Disconnect drops the current host, if any.
	Disconnect() error

	// Close releases the link stack.
	Close() error
}
