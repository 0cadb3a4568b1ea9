// Package native resolves and loads mod-provided native shared libraries.
//
// A mod's native libraries live under a platform- and architecture-specific
// subfolder of its library folder (windows-x64, linux-x64, linux-arm,
// linux-arm64, macos-x64). Because mod content may live inside an archive,
// library bytes are extracted to a real temporary file before loading; native
// loaders need a filesystem path.
//
// Unlike managed resolution there is no host-global fallback: native
// dependencies must be explicit.
package native
