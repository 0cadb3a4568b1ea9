// Package loader is the mod loading core: per-mod load contexts, the
// process-wide context registry, the host-identifier blacklist, and the
// resolution chains for managed units and native libraries.
//
// A Context is an isolated, disposable loading scope owning one mod's
// loaded units and caches. Resolution walks: local cache, the mod's own
// library folder, dependency contexts (one hop, declaration order), and,
// for managed units only, the host-provided unit set. A unit registered
// under mod A never satisfies a request for mod B unless B declares A as a
// dependency.
//
// Registration order matters: a dependency link is established only if the
// dependency's context is already registered when the dependent context is
// constructed.
package loader
