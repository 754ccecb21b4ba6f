package artifact

import (
	"fmt"

	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

const (
	flagProvenance = 1 << iota
)

const (
	v1HeaderLen = FingerprintLen + 1 + 2*FingerprintLen + 1
	v1OpcodeLen = 1 + 4*4
)

type codecV1 struct{}

func (codecV1) encode(a *Artifact) ([]byte, error) {
	orig, mod := a.Orig.String(), a.Mod.String()
	var flags uint8
	if a.OrigProvenance != nil || a.ModProvenance != nil {
		if len(a.OrigProvenance) != a.Orig.Len() || len(a.ModProvenance) != a.Mod.Len() {
			return nil, fmt.Errorf("provenance for %d,%d lines, want %d,%d",
				len(a.OrigProvenance), len(a.ModProvenance), a.Orig.Len(), a.Mod.Len())
		}
		flags |= flagProvenance
	}
	size := v1HeaderLen +
		2 + len(a.OrigCharset) + 2 + len(a.ModCharset) +
		4 + len(orig) + 4 + len(mod) +
		4 + v1OpcodeLen*len(a.Opcodes)
	if flags&flagProvenance != 0 {
		size += len(a.OrigProvenance) + len(a.ModProvenance)
	}
	buf := make([]byte, size)
	ptr := buf
	ptr = pfingerprint(a.Fingerprint, ptr)
	ptr = pint8(uint8(a.Kind), ptr)
	ptr = pfingerprint(a.Parents[0], ptr)
	ptr = pfingerprint(a.Parents[1], ptr)
	ptr = pint8(flags, ptr)
	ptr = pstr(a.OrigCharset, ptr)
	ptr = pstr(a.ModCharset, ptr)
	ptr = ptext(orig, ptr)
	ptr = ptext(mod, ptr)
	ptr = pint32(uint32(len(a.Opcodes)), ptr)
	for _, op := range a.Opcodes {
		ptr = pint8(uint8(op.Tag), ptr)
		ptr = pint32(uint32(op.OrigStart), ptr)
		ptr = pint32(uint32(op.OrigEnd), ptr)
		ptr = pint32(uint32(op.ModStart), ptr)
		ptr = pint32(uint32(op.ModEnd), ptr)
	}
	if flags&flagProvenance != 0 {
		for _, p := range a.OrigProvenance {
			ptr = pint8(uint8(p), ptr)
		}
		for _, p := range a.ModProvenance {
			ptr = pint8(uint8(p), ptr)
		}
	}
	if len(ptr) != 0 {
		panic(fmt.Sprintf("artifact encoding: %d bytes left over", len(ptr)))
	}
	return buf, nil
}

func (codecV1) decode(data []byte, opts seq.Options, a *Artifact) error {
	if len(data) < v1HeaderLen {
		return fmt.Errorf("truncated header: %d bytes", len(data))
	}
	ptr := data
	var kind, flags uint8
	a.Fingerprint, ptr = gfingerprint(ptr)
	kind, ptr = gint8(ptr)
	a.Kind = Kind(kind)
	if a.Kind != KindDiff && a.Kind != KindInterdiff {
		return fmt.Errorf("unknown kind %d", kind)
	}
	a.Parents[0], ptr = gfingerprint(ptr)
	a.Parents[1], ptr = gfingerprint(ptr)
	flags, ptr = gint8(ptr)
	var ok bool
	if a.OrigCharset, ptr, ok = gstr(ptr); !ok {
		return fmt.Errorf("truncated charset")
	}
	if a.ModCharset, ptr, ok = gstr(ptr); !ok {
		return fmt.Errorf("truncated charset")
	}
	var orig, mod string
	if orig, ptr, ok = gtext(ptr); !ok {
		return fmt.Errorf("truncated original text")
	}
	if mod, ptr, ok = gtext(ptr); !ok {
		return fmt.Errorf("truncated modified text")
	}
	a.Orig = seq.New(orig, opts)
	a.Mod = seq.New(mod, opts)
	if len(ptr) < 4 {
		return fmt.Errorf("truncated opcode count")
	}
	var n uint32
	n, ptr = gint32(ptr)
	if uint64(n)*v1OpcodeLen > uint64(len(ptr)) {
		return fmt.Errorf("truncated opcodes: want %d", n)
	}
	if n > 0 {
		a.Opcodes = make([]opcode.Opcode, n)
	}
	for i := range a.Opcodes {
		var tag uint8
		var o0, o1, m0, m1 uint32
		tag, ptr = gint8(ptr)
		o0, ptr = gint32(ptr)
		o1, ptr = gint32(ptr)
		m0, ptr = gint32(ptr)
		m1, ptr = gint32(ptr)
		a.Opcodes[i] = opcode.Opcode{
			Tag:       opcode.Tag(tag),
			OrigStart: int(o0),
			OrigEnd:   int(o1),
			ModStart:  int(m0),
			ModEnd:    int(m1),
		}
	}
	if flags&flagProvenance != 0 {
		if len(ptr) != a.Orig.Len()+a.Mod.Len() {
			return fmt.Errorf("got %d provenance bytes, want %d", len(ptr), a.Orig.Len()+a.Mod.Len())
		}
		a.OrigProvenance = make([]opcode.Provenance, a.Orig.Len())
		for i := range a.OrigProvenance {
			var p uint8
			p, ptr = gint8(ptr)
			a.OrigProvenance[i] = opcode.Provenance(p)
		}
		a.ModProvenance = make([]opcode.Provenance, a.Mod.Len())
		for i := range a.ModProvenance {
			var p uint8
			p, ptr = gint8(ptr)
			a.ModProvenance[i] = opcode.Provenance(p)
		}
	}
	if len(ptr) != 0 {
		return fmt.Errorf("%d trailing bytes", len(ptr))
	}
	return nil
}
