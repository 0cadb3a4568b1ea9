package wasmbin

// Import names one imported function in a built module.
type Import struct {
	Module string
	Name   string
}

// ModuleSpec describes a minimal module for Build.
type ModuleSpec struct {
	// Name becomes the module-name subsection of the "name" custom section.
	// Empty means the binary carries no self-declared name.
	Name string

	// Exports are exported nullary functions with empty bodies.
	Exports []string

	// Imports are function imports; instantiation requires each Module to
	// resolve to a loaded unit exporting Name.
	Imports []Import
}

// Build encodes a valid core wasm binary for the spec. All functions share
// the type () -> ().
func Build(spec ModuleSpec) []byte {
	out := append([]byte{}, magic...)

	hasFuncs := len(spec.Exports) > 0 || len(spec.Imports) > 0

	if hasFuncs {
		// Single type: () -> ()
		body := encodeVec(1, []byte{0x60, 0x00, 0x00})
		out = append(out, encodeSection(sectionType, body)...)
	}

	if len(spec.Imports) > 0 {
		var body []byte
		for _, imp := range spec.Imports {
			body = append(body, encodeString(imp.Module)...)
			body = append(body, encodeString(imp.Name)...)
			body = append(body, importKindFunc)
			body = append(body, EncodeULEB128(0)...) // type index
		}
		out = append(out, encodeSection(sectionImport, encodeVec(len(spec.Imports), body))...)
	}

	if len(spec.Exports) > 0 {
		var funcBody []byte
		for range spec.Exports {
			funcBody = append(funcBody, EncodeULEB128(0)...)
		}
		out = append(out, encodeSection(sectionFunction, encodeVec(len(spec.Exports), funcBody))...)

		var exportBody []byte
		for i, name := range spec.Exports {
			exportBody = append(exportBody, encodeString(name)...)
			exportBody = append(exportBody, importKindFunc)
			exportBody = append(exportBody, EncodeULEB128(uint32(len(spec.Imports)+i))...)
		}
		out = append(out, encodeSection(sectionExport, encodeVec(len(spec.Exports), exportBody))...)

		var codeBody []byte
		for range spec.Exports {
			// Body: no locals, end opcode.
			codeBody = append(codeBody, EncodeULEB128(2)...)
			codeBody = append(codeBody, 0x00, 0x0B)
		}
		out = append(out, encodeSection(sectionCode, encodeVec(len(spec.Exports), codeBody))...)
	}

	if spec.Name != "" {
		sub := append(EncodeULEB128(uint32(len(spec.Name))), []byte(spec.Name)...)
		body := encodeString("name")
		body = append(body, 0x00) // module-name subsection
		body = append(body, EncodeULEB128(uint32(len(sub)))...)
		body = append(body, sub...)
		out = append(out, encodeSection(sectionCustom, body)...)
	}

	return out
}

func encodeSection(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, EncodeULEB128(uint32(len(body)))...)
	return append(out, body...)
}

func encodeVec(count int, body []byte) []byte {
	out := EncodeULEB128(uint32(count))
	return append(out, body...)
}

func encodeString(s string) []byte {
	out := EncodeULEB128(uint32(len(s)))
	return append(out, s...)
}
