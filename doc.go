// Package modhost implements mod loading for a game host: each installed
// mod gets an isolated load context for its WebAssembly units and native
// libraries, with controlled sharing through declared dependencies.
//
// The module is organized into packages with distinct responsibilities:
//
//	modhost/           Root package documentation
//	├── loader/        Load contexts, the context registry, blacklist, caches
//	├── engine/        wazero integration: stores, units, host modules
//	├── native/        Platform-specific native library extraction and loading
//	├── mod/           Mod descriptors and manifest parsing
//	├── modfs/         Read-only views of mod content (directory, zip archive)
//	├── errors/        Structured error types shared by all packages
//	└── cmd/modhost/   CLI for inspecting and exercising installed mods
//
// # Quick Start
//
// Load two mods where the second depends on the first:
//
//	eng, err := engine.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	reg := loader.NewRegistry(eng)
//	defer reg.Close(ctx)
//
//	core, err := loader.NewContext(ctx, reg, coreDesc, modfs.NewDirFS("mods/core"))
//	addon, err := loader.NewContext(ctx, reg, addonDesc, modfs.NewDirFS("mods/addon"))
//
//	unit, err := addon.Load(ctx, "CoreUtil") // resolved from core's context
//
// Registration order matters: a context links only to dependencies already
// registered at its construction time.
//
// # Isolation Model
//
// Every context owns a separate engine store. A unit loaded by one mod is
// never served to another unless the requester declares that mod as a
// dependency, and dependency resolution is one hop: a context searches its
// own content, then its direct dependencies, never further.
//
// Host-provided units (the WASI interface and registered host modules)
// resolve in every context, and their names are blacklisted so no mod can
// shadow them.
//
// # Thread Safety
//
// Registry and Context are safe for concurrent use. Loads within one
// context are serialized; loads in different contexts proceed in parallel.
package modhost
