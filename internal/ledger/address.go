package ledger

import (
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"fmt"
)

const (
	publicKeyLen = 32
	checksumLen  = 4
	addressLen   = 58
)

var base32Encoder = base32.StdEncoding.WithPadding(base32.NoPadding)

// appIDPrefix is the domain separator the ledger uses when hashing an
// application id into its escrow address.
var appIDPrefix = []byte("appID")

// AppAddress derives the escrow address of an application from its id. The
// derivation matches the ledger's own: sha512/256 over a domain-separated
// big-endian application id. Because the address is a pure function of the
// program id, the authority address cannot be reassigned without deploying a
// different program.
func AppAddress(appID uint64) string {
	buf := make([]byte, 0, len(appIDPrefix)+8)
	buf = append(buf, appIDPrefix...)
	buf = binary.BigEndian.AppendUint64(buf, appID)
	digest := sha512.Sum512_256(buf)
	return encodeAddress(digest)
}

// encodeAddress renders a 32-byte public key as a checksummed base32 address.
func encodeAddress(pk [publicKeyLen]byte) string {
	checksum := sha512.Sum512_256(pk[:])
	raw := make([]byte, 0, publicKeyLen+checksumLen)
	raw = append(raw, pk[:]...)
	raw = append(raw, checksum[len(checksum)-checksumLen:]...)
	return base32Encoder.EncodeToString(raw)
}

// DecodeAddress validates a checksummed base32 address and returns its
// 32-byte public key.
func DecodeAddress(addr string) ([publicKeyLen]byte, error) {
	var pk [publicKeyLen]byte
	if len(addr) != addressLen {
		return pk, fmt.Errorf("address must be %d characters, got %d", addressLen, len(addr))
	}
	raw, err := base32Encoder.DecodeString(addr)
	if err != nil {
		return pk, fmt.Errorf("malformed address: %w", err)
	}
	if len(raw) != publicKeyLen+checksumLen {
		return pk, fmt.Errorf("address decodes to %d bytes, want %d", len(raw), publicKeyLen+checksumLen)
	}
	copy(pk[:], raw[:publicKeyLen])
	checksum := sha512.Sum512_256(pk[:])
	for i := 0; i < checksumLen; i++ {
		if raw[publicKeyLen+i] != checksum[len(checksum)-checksumLen+i] {
			return pk, fmt.Errorf("address checksum mismatch")
		}
	}
	return pk, nil
}

// IsValidAddress reports whether addr is a well-formed ledger address.
func IsValidAddress(addr string) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}
