package wasmbin

// EncodeULEB128 encodes an unsigned value in LEB128 format.
func EncodeULEB128(v uint32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		result = append(result, b)
		if v == 0 {
			break
		}
	}
	return result
}

// DecodeULEB128 decodes an unsigned LEB128 value, returning the value and
// the number of bytes consumed.
func DecodeULEB128(data []byte) (uint32, int) {
	var result uint32
	var shift uint32
	for i, b := range data {
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
		if shift > 35 {
			return result, i + 1
		}
	}
	return result, len(data)
}
