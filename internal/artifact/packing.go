package artifact

// Little-endian helpers to serialize artifacts. The g* functions assume
// enough data is available; the codecs check lengths up front.

func gint8(buf []byte) (uint8, []byte) { return buf[0], buf[1:] }

func gint16(buf []byte) (uint16, []byte) {
	return uint16(buf[0]) | (uint16(buf[1]) << 8), buf[2:]
}

func gint32(buf []byte) (uint32, []byte) {
	return uint32(buf[0]) | (uint32(buf[1]) << 8) | (uint32(buf[2]) << 16) |
			(uint32(buf[3]) << 24),
		buf[4:]
}

// Strings short enough for a 16-bit length, e.g., charset names.
func gstr(buf []byte) (string, []byte, bool) {
	if len(buf) < 2 {
		return "", nil, false
	}
	n, buf := gint16(buf)
	if int(n) > len(buf) {
		return "", nil, false
	}
	return string(buf[:n]), buf[n:], true
}

// Arbitrary text, with a 32-bit length.
func gtext(buf []byte) (string, []byte, bool) {
	if len(buf) < 4 {
		return "", nil, false
	}
	n, buf := gint32(buf)
	if uint64(n) > uint64(len(buf)) {
		return "", nil, false
	}
	return string(buf[:n]), buf[n:], true
}

func gfingerprint(buf []byte) (f Fingerprint, rest []byte) {
	copy(f[:], buf)
	return f, buf[FingerprintLen:]
}

func pint8(val uint8, buf []byte) []byte {
	buf[0] = val
	return buf[1:]
}

func pint16(val uint16, buf []byte) []byte {
	buf[0] = uint8(val)
	buf[1] = uint8(val >> 8)
	return buf[2:]
}

func pint32(val uint32, buf []byte) []byte {
	buf[0] = uint8(val)
	buf[1] = uint8(val >> 8)
	buf[2] = uint8(val >> 16)
	buf[3] = uint8(val >> 24)
	return buf[4:]
}

func pstr(val string, buf []byte) []byte {
	buf = pint16(uint16(len(val)), buf)
	n := copy(buf, val)
	return buf[n:]
}

func ptext(val string, buf []byte) []byte {
	buf = pint32(uint32(len(val)), buf)
	n := copy(buf, val)
	return buf[n:]
}

func pfingerprint(f Fingerprint, buf []byte) []byte {
	n := copy(buf, f[:])
	return buf[n:]
}
