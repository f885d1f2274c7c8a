package network

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameSize bounds a single setup-swap frame at 1024 bytes.
const maxFrameSize = 1024

// frame is the envelope every setup-swap message travels in: a protocol
// tag so a receiver can route it, a role tag so a receiver never
// confuses AliceParams for BobParams, and the CommonParams the sender
// believes apply plus its role-dependent payload. SenderAddr is the
// address the sender itself is reachable at, carried in-band because
// a connection's remote address is only ever an ephemeral client port
// and can't be used to correlate a peer's two halves.
//
// An empty Role marks a bare acknowledgement: "your half arrived, I
// haven't announced my own yet."
type frame struct {
	Protocol   Protocol        `json:"protocol"`
	Role       string          `json:"role"`
	SenderAddr string          `json:"sender_addr"`
	CommonHash [32]byte        `json:"common_hash"`
	Common     CommonParams    `json:"common"`
	RoleParams json.RawMessage `json:"role_params"`
}

func (f frame) hasRoleParams() bool {
	return f.Role != ""
}

// writeFrame encodes v as a length-prefixed JSON frame: a 2-byte
// big-endian length followed by that many bytes of JSON.
func writeFrame(w io.Writer, v frame) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(encoded) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds %d byte limit", len(encoded), maxFrameSize)
	}

	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(encoded)))

	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// readFrame decodes a length-prefixed JSON frame, rejecting any length
// prefix beyond maxFrameSize before allocating a buffer for it.
func readFrame(r io.Reader) (frame, error) {
	var length [2]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return frame{}, fmt.Errorf("read frame length: %w", err)
	}

	size := binary.BigEndian.Uint16(length[:])
	if int(size) > maxFrameSize {
		return frame{}, fmt.Errorf("peer announced frame of %d bytes, exceeds %d byte limit", size, maxFrameSize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return frame{}, fmt.Errorf("read frame body: %w", err)
	}

	var f frame
	if err := json.Unmarshal(body, &f); err != nil {
		return frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
