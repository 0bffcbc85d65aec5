package protocol

import "encoding/binary"

// FragmentHeader is the 3-byte header prefixed to every on-air fragment.
// Index counts DOWN: the first fragment carries total_fragments-1 and the
// terminal fragment carries 0.
type FragmentHeader struct {
	Code  byte
	Index uint16
}

// EncodeFragmentHeader writes h into the first FragmentHeaderSize bytes of
// dst. dst must be at least FragmentHeaderSize long.
func EncodeFragmentHeader(dst []byte, h FragmentHeader) {
	dst[0] = h.Code
	binary.LittleEndian.PutUint16(dst[1:3], h.Index)
}

// DecodeFragmentHeader parses the first FragmentHeaderSize bytes of src.
func DecodeFragmentHeader(src []byte) FragmentHeader {
	return FragmentHeader{
		Code:  src[0],
		Index: binary.LittleEndian.Uint16(src[1:3]),
	}
}

// Pad zero-extends or truncates buf to exactly n bytes.
func Pad(buf []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, buf)
	return out
}

// Unpad strips trailing zero bytes. This is necessarily ambiguous for
// plaintext that legitimately ends in zero bytes; see SPEC_FULL.md's open
// questions.
func Unpad(buf []byte) []byte {
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return buf[:end]
}

// FragmentCount returns the number of FragmentPayloadSize-sized fragments
// needed to carry n bytes.
func FragmentCount(n int) int {
	if n == 0 {
		return 1
	}
	return (n + FragmentPayloadSize - 1) / FragmentPayloadSize
}
