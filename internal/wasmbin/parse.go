package wasmbin

// Section ids used by the scanner.
const (
	sectionCustom   = 0x00
	sectionType     = 0x01
	sectionImport   = 0x02
	sectionFunction = 0x03
	sectionExport   = 0x07
	sectionCode     = 0x0A
)

// Import kinds.
const (
	importKindFunc   = 0x00
	importKindTable  = 0x01
	importKindMemory = 0x02
	importKindGlobal = 0x03
)

var magic = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// IsModule reports whether data starts with the core wasm preamble.
func IsModule(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	for i, b := range magic {
		if data[i] != b {
			return false
		}
	}
	return true
}

// ModuleName returns the module's self-declared name from the "name" custom
// section, or "" if the module has none. The binary is scanned, not
// compiled or activated.
func ModuleName(data []byte) string {
	if !IsModule(data) {
		return ""
	}

	pos := 8
	for pos < len(data) {
		sectionID := data[pos]
		pos++
		size, n := DecodeULEB128(data[pos:])
		if n == 0 {
			return ""
		}
		pos += n
		end := pos + int(size)
		if end > len(data) {
			return ""
		}

		if sectionID == sectionCustom {
			if name := parseNameSection(data[pos:end]); name != "" {
				return name
			}
		}
		pos = end
	}
	return ""
}

// parseNameSection extracts the module-name subsection from a custom
// section body, if that custom section is the "name" section.
func parseNameSection(body []byte) string {
	nameLen, n := DecodeULEB128(body)
	if n == 0 {
		return ""
	}
	pos := n
	if pos+int(nameLen) > len(body) {
		return ""
	}
	if string(body[pos:pos+int(nameLen)]) != "name" {
		return ""
	}
	pos += int(nameLen)

	for pos < len(body) {
		subID := body[pos]
		pos++
		subSize, n := DecodeULEB128(body[pos:])
		if n == 0 {
			return ""
		}
		pos += n
		end := pos + int(subSize)
		if end > len(body) {
			return ""
		}

		// Subsection 0 is the module name.
		if subID == 0x00 {
			modLen, n := DecodeULEB128(body[pos:])
			if n == 0 || pos+n+int(modLen) > end {
				return ""
			}
			return string(body[pos+n : pos+n+int(modLen)])
		}
		pos = end
	}
	return ""
}

// ImportedModules returns the distinct module names this binary imports
// from, in first-reference order.
func ImportedModules(data []byte) []string {
	if !IsModule(data) {
		return nil
	}

	pos := 8
	for pos < len(data) {
		sectionID := data[pos]
		pos++
		size, n := DecodeULEB128(data[pos:])
		if n == 0 {
			return nil
		}
		pos += n
		end := pos + int(size)
		if end > len(data) {
			return nil
		}

		if sectionID != sectionImport {
			pos = end
			continue
		}

		var names []string
		seen := make(map[string]struct{})

		count, n := DecodeULEB128(data[pos:])
		pos += n
		for i := uint32(0); i < count && pos < end; i++ {
			modLen, n := DecodeULEB128(data[pos:])
			pos += n
			if pos+int(modLen) > end {
				return names
			}
			modName := string(data[pos : pos+int(modLen)])
			pos += int(modLen)

			nameLen, n := DecodeULEB128(data[pos:])
			pos += n
			if pos+int(nameLen) > end {
				return names
			}
			pos += int(nameLen)

			if pos >= end {
				return names
			}
			kind := data[pos]
			pos++

			switch kind {
			case importKindFunc:
				_, n := DecodeULEB128(data[pos:])
				pos += n
			case importKindTable:
				pos++ // elem type
				pos += skipLimits(data[pos:])
			case importKindMemory:
				pos += skipLimits(data[pos:])
			case importKindGlobal:
				pos += 2 // valtype + mutability
			default:
				return names
			}

			if _, ok := seen[modName]; !ok {
				seen[modName] = struct{}{}
				names = append(names, modName)
			}
		}
		return names
	}
	return nil
}

// ExportedNames returns the module's export names in declaration order.
func ExportedNames(data []byte) []string {
	if !IsModule(data) {
		return nil
	}

	pos := 8
	for pos < len(data) {
		sectionID := data[pos]
		pos++
		size, n := DecodeULEB128(data[pos:])
		if n == 0 {
			return nil
		}
		pos += n
		end := pos + int(size)
		if end > len(data) {
			return nil
		}

		if sectionID != sectionExport {
			pos = end
			continue
		}

		var names []string
		count, n := DecodeULEB128(data[pos:])
		pos += n
		for i := uint32(0); i < count && pos < end; i++ {
			nameLen, n := DecodeULEB128(data[pos:])
			pos += n
			if pos+int(nameLen) > end {
				return names
			}
			names = append(names, string(data[pos:pos+int(nameLen)]))
			pos += int(nameLen)

			pos++ // kind
			_, n = DecodeULEB128(data[pos:])
			pos += n
		}
		return names
	}
	return nil
}

// skipLimits returns the encoded size of a limits value.
func skipLimits(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	flag := data[0]
	pos := 1
	_, n := DecodeULEB128(data[pos:])
	pos += n
	if flag&0x01 != 0 {
		_, n := DecodeULEB128(data[pos:])
		pos += n
	}
	return pos
}
