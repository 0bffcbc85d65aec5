package protocol

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// PersonalizedEntropy wraps a raw CSPRNG (the out-of-scope entropy source,
// spec.md §1) with an HKDF stage salted by the local UID, so that two
// devices drawing from correlated entropy still derive distinct keypairs
// (spec.md §4.B). This only personalises local key generation; it is never
// used on the X25519 output itself, which spec.md §9 note 2 requires to be
// used as the symmetric key unmodified.
func PersonalizedEntropy(uid string, src io.Reader) io.Reader {
	seed, err := readAll32(src)
	if err != nil {
		// The failure surfaces on the first Read, so key generation
		// reports ErrCryptoError instead of panicking.
		return failingReader{err}
	}
	return hkdf.New(sha256.New, seed, []byte(NormalizeUID(uid)), []byte("nrfpair-keygen"))
}

// readAll32 draws 32 bytes of raw entropy to seed the HKDF extract step.
func readAll32(src io.Reader) ([]byte, error) {
	seed := make([]byte, 32)
	if _, err := io.ReadFull(src, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// failingReader reports err on every Read.
type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }
