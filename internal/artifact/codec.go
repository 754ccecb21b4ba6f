package artifact

import (
	"context"
	"errors"
	"sync"

	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

// Codec defines how artifacts are serialized for the persistent tier.
// Only the inputs and the opcodes are stored; everything else is derived
// again on decoding.
type Codec interface {
	encode(a *Artifact) (data []byte, err error)
	decode(data []byte, opts seq.Options, a *Artifact) (err error)
}

type multiCodec struct {
	mu            sync.Mutex
	codecs        map[byte]Codec
	latestVersion byte
}

var (
	errNoCodec = errors.New("no codec found")

	standard = newStandardCodec()
)

func newMultiCodec() *multiCodec {
	return &multiCodec{
		codecs: make(map[byte]Codec),
	}
}

func (mc *multiCodec) register(version byte, c Codec) {
	mc.mu.Lock()
	mc.codecs[version] = c
	if version > mc.latestVersion {
		mc.latestVersion = version
	}
	mc.mu.Unlock()
}

// Encodes with the most recent codec.
func (mc *multiCodec) encode(a *Artifact) ([]byte, error) {
	mc.mu.Lock()
	v := mc.latestVersion
	mc.mu.Unlock()
	data, err := mc.codecFor(v).encode(a)
	if err != nil {
		return nil, err
	}
	return append([]byte{v}, data...), nil
}

// Decodes with the correct codec, based on version.
func (mc *multiCodec) decode(data []byte, opts seq.Options, a *Artifact) error {
	if len(data) == 0 {
		return errNoCodec
	}
	c := mc.codecFor(data[0])
	if c == nil {
		return errNoCodec
	}
	return c.decode(data[1:], opts, a)
}

func (mc *multiCodec) codecFor(version byte) Codec {
	mc.mu.Lock()
	c := mc.codecs[version]
	mc.mu.Unlock()
	return c
}

func newStandardCodec() *multiCodec {
	codec := newMultiCodec()
	codec.register(1, &codecV1{})
	return codec
}

// Encode serializes a with the latest codec.
func Encode(a *Artifact) ([]byte, error) {
	data, err := standard.encode(a)
	if err != nil {
		return nil, errorf("Encode", "%v: %w", a.Fingerprint, err)
	}
	return data, nil
}

// Decode reverses Encode. The derived parts of the artifact (chunks,
// moves, highlights) are recomputed according to opts, which must match
// the options the artifact was originally built with.
func Decode(ctx context.Context, data []byte, opts Options) (*Artifact, error) {
	const method = "Decode"
	var a Artifact
	if err := standard.decode(data, opts.Sequence, &a); err != nil {
		return nil, errorf(method, "%w", err)
	}
	if err := opcode.Check(a.Opcodes, a.Orig, a.Mod); err != nil {
		return nil, errorf(method, "%v: %w", a.Fingerprint, err)
	}
	return Build(ctx, a, opts)
}
