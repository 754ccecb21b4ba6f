package artifact

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// AlgorithmVersion is mixed into every fingerprint. Change it whenever a
// change to the engine can change any artifact.
const AlgorithmVersion = "chunkdiff/1"

const FingerprintLen = sha256.Size

// Fingerprint identifies an artifact: equal fingerprints mean
// interchangeable artifacts.
type Fingerprint [FingerprintLen]byte

func (f Fingerprint) Hex() string    { return hex.EncodeToString(f[:]) }
func (f Fingerprint) String() string { return f.Hex() }
func (f Fingerprint) IsZero() bool   { return f == Fingerprint{} }

// ParseFingerprint parses the output of Hex.
func ParseFingerprint(s string) (f Fingerprint, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return f, errorf("ParseFingerprint", "%q: %v", s, err)
	}
	if len(b) != FingerprintLen {
		return f, errorf("ParseFingerprint", "%q: got %d bytes, want %d", s, len(b), FingerprintLen)
	}
	copy(f[:], b)
	return f, nil
}

// ForDiff fingerprints a diff of orig against mod under a configuration,
// given in some canonical textual form.
func ForDiff(config string, orig, mod []byte) Fingerprint {
	h := sha256.New()
	field(h, []byte(AlgorithmVersion))
	field(h, []byte("diff"))
	field(h, []byte(config))
	field(h, orig)
	field(h, mod)
	return sum(h)
}

// ForInterdiff fingerprints an interdiff between the artifacts identified
// by a and b.
func ForInterdiff(config string, a, b Fingerprint) Fingerprint {
	h := sha256.New()
	field(h, []byte(AlgorithmVersion))
	field(h, []byte("interdiff"))
	field(h, []byte(config))
	field(h, a[:])
	field(h, b[:])
	return sum(h)
}

// Length-prefixing keeps ("ab", "c") and ("a", "bc") apart.
func field(h hash.Hash, b []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}

func sum(h hash.Hash) (f Fingerprint) {
	copy(f[:], h.Sum(nil))
	return f
}
