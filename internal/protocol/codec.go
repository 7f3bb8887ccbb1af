package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire format for a session.
type Encoding int

const (
	EncodingMsgpack Encoding = iota // binary packed, the default
	EncodingJSON                    // text frames for browser debugging
)

func (e Encoding) String() string {
	if e == EncodingJSON {
		return "json"
	}
	return "msgpack"
}

// Codec encodes and decodes envelopes. Decode auto-detects the format;
// Encode follows the caller's preference so a session authenticated with
// a JSON auth frame keeps receiving JSON.
type Codec struct{}

// NewCodec returns a Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Decode parses raw frame bytes. MessagePack is tried first; on
// structural failure the bytes are re-parsed as JSON. The detected
// encoding is returned alongside the message.
func (c *Codec) Decode(data []byte) (*Message, Encoding, error) {
	if len(data) == 0 {
		return nil, EncodingMsgpack, fmt.Errorf("empty frame")
	}

	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err == nil && msg.Type != "" {
		return &msg, EncodingMsgpack, nil
	}

	msg = Message{}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, EncodingJSON, fmt.Errorf("decode frame: %w", err)
	}
	return &msg, EncodingJSON, nil
}

// Encode serializes a message in the requested encoding.
func (c *Codec) Encode(msg *Message, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingJSON:
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return data, nil
	default:
		data, err := msgpack.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encode msgpack: %w", err)
		}
		return data, nil
	}
}
