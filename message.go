package socket

import "io"

// Message is a unit of application data carried over a Conn.
type Message interface {
	// Length returns the length of the message body.
	Length() int
	// Body returns the raw message data.
	Body() []byte
}

// Codec frames messages on the TCP stream.
//
// Decode receives a reader limited to the connection's maximum message
// size and must consume exactly one message, so that fragmented TCP
// segments are reassembled by the codec rather than the connection.
type Codec interface {
	// Decode reads one message from r.
	// Returning an error hands it to the connection's onError callback.
	Decode(r io.Reader) (Message, error)
	// Encode converts a message into bytes ready to write to the stream.
	Encode(Message) ([]byte, error)
}
