package sandbox

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Connect streaming envelopes: 1 flag byte, 4 byte big-endian length, payload.
const (
	envelopeEndStream = 0x02
	maxEnvelopeSize   = 16 << 20
)

func writeEnvelope(w io.Writer, flags byte, payload []byte) error {
	var prefix [5]byte
	prefix[0] = flags
	binary.BigEndian.PutUint32(prefix[1:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readEnvelope(r io.Reader) (byte, []byte, error) {
	var prefix [5]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, nil, err
	}
	size := binary.BigEndian.Uint32(prefix[1:])
	if size > maxEnvelopeSize {
		return 0, nil, fmt.Errorf("envelope of %d bytes exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return prefix[0], payload, nil
}
