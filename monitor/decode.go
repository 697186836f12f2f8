package monitor

import (
	"context"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// DetailsSize is the exact length of the details frame:
// a 16-bit kind followed by a 32-bit value.
const DetailsSize = 2 + 4

// ErrInvalidEventFormat is returned by BuildEvent and RecvEvent when a
// message is not shaped like a monitoring event.
var ErrInvalidEventFormat = errors.New("monitor: invalid event format: no event data")

// Receiver yields the frames of one message at a time.
type Receiver interface {
	RecvFrames(ctx context.Context) ([][]byte, error)
}

// TryBuildEvent decodes a [details, address] message. It reports false
// when the message does not have exactly two frames or the details
// frame is not DetailsSize bytes long.
func TryBuildEvent(frames [][]byte) (Event, bool) {
	if len(frames) != 2 {
		return Event{}, false
	}

	details, address := frames[0], frames[1]
	if len(details) != DetailsSize {
		return Event{}, false
	}

	kind := Kind(binary.NativeEndian.Uint16(details[0:2]))
	value := int32(binary.NativeEndian.Uint32(details[2:6]))

	return Event{
		Kind:    kind,
		Address: decodeAddress(address),
		Payload: Classify(kind, value),
	}, true
}

// BuildEvent is TryBuildEvent for callers that know the message came
// from a monitoring channel. It returns ErrInvalidEventFormat instead of
// reporting absence.
func BuildEvent(frames [][]byte) (Event, error) {
	event, ok := TryBuildEvent(frames)
	if !ok {
		return Event{}, ErrInvalidEventFormat
	}
	return event, nil
}

// TryRecvEvent receives one message from r and decodes it with
// TryBuildEvent. Only a failing receive produces an error.
func TryRecvEvent(ctx context.Context, r Receiver) (Event, bool, error) {
	frames, err := r.RecvFrames(ctx)
	if err != nil {
		return Event{}, false, errors.Wrap(err, "monitor: receive event")
	}

	event, ok := TryBuildEvent(frames)
	return event, ok, nil
}

// RecvEvent receives one message from r and decodes it with BuildEvent.
func RecvEvent(ctx context.Context, r Receiver) (Event, error) {
	frames, err := r.RecvFrames(ctx)
	if err != nil {
		return Event{}, errors.Wrap(err, "monitor: receive event")
	}
	return BuildEvent(frames)
}

// decodeAddress never fails: invalid sequences become U+FFFD.
func decodeAddress(b []byte) string {
	text, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(text)
}
