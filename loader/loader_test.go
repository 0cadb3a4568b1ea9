package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/coreos/go-semver/semver"

	"github.com/wippyai/mod-host/engine"
	"github.com/wippyai/mod-host/errors"
	"github.com/wippyai/mod-host/internal/wasmbin"
	"github.com/wippyai/mod-host/mod"
	"github.com/wippyai/mod-host/modfs"
	"github.com/wippyai/mod-host/native"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx := context.Background()

	eng, err := engine.New(ctx, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })

	reg := NewRegistry(eng)
	t.Cleanup(func() { reg.Close(ctx) })
	return reg
}

func writeMod(t *testing.T, files map[string][]byte) modfs.FS {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return modfs.NewDirFS(root)
}

func unitFile(name string, exports ...string) []byte {
	return wasmbin.Build(wasmbin.ModuleSpec{Name: name, Exports: exports})
}

func descriptor(id string, deps ...mod.Dependency) *mod.Descriptor {
	return &mod.Descriptor{ID: id, Version: semver.New("1.0.0"), Dependencies: deps}
}

func TestNewContext_EagerLoad(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	fsys := writeMod(t, map[string][]byte{
		"lib/Util.wasm":    unitFile("Util", "helper"),
		"lib/Physics.wasm": unitFile("Physics", "step"),
		"lib/readme.txt":   []byte("not a unit"),
	})

	c, err := NewContext(ctx, reg, descriptor("demo-mod"), fsys)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	if got := len(c.Units()); got != 2 {
		t.Fatalf("tracked units = %d (%v), want 2", got, c.Units())
	}
	if reg.Context("demo-mod") != c {
		t.Error("context not registered under its mod identifier")
	}

	u, err := c.Load(ctx, "Util")
	if err != nil {
		t.Fatalf("Load Util: %v", err)
	}
	if u.Name() != "Util" {
		t.Errorf("unit name = %q, want Util", u.Name())
	}
}

func TestNewContext_EagerLoadSurvivesBadUnit(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	// One file is not a wasm binary; the rest of the mod still loads.
	fsys := writeMod(t, map[string][]byte{
		"lib/Broken.wasm": []byte("not a wasm binary"),
		"lib/Good.wasm":   unitFile("Good", "helper"),
	})

	c, err := NewContext(ctx, reg, descriptor("demo-mod"), fsys)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	if units := c.Units(); len(units) != 1 || units[0] != "Good" {
		t.Fatalf("tracked units = %v, want [Good]", units)
	}
	if _, err := c.Load(ctx, "Good"); err != nil {
		t.Errorf("Load Good: %v", err)
	}
	if _, err := c.Load(ctx, "Broken"); !errors.IsNotFound(err) {
		t.Errorf("Load Broken: got %v, want not-found", err)
	}
}

func TestLoad_IdempotentPerName(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	fsys := writeMod(t, map[string][]byte{"lib/Util.wasm": unitFile("Util", "helper")})
	c, err := NewContext(ctx, reg, descriptor("demo-mod"), fsys)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	first, err := c.Load(ctx, "Util")
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, err := c.Load(ctx, "Util")
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if first != second {
		t.Error("repeated Load returned a different unit instance")
	}
}

func TestLoad_Miss(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	c, err := NewContext(ctx, reg, descriptor("empty-mod"), writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	if _, err := c.Load(ctx, "Nowhere"); !errors.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestIsolation_BetweenContexts(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	a, err := NewContext(ctx, reg, descriptor("mod-a"),
		writeMod(t, map[string][]byte{"lib/Util.wasm": unitFile("Util", "helper")}))
	if err != nil {
		t.Fatalf("NewContext a: %v", err)
	}
	b, err := NewContext(ctx, reg, descriptor("mod-b"),
		writeMod(t, map[string][]byte{"lib/Util.wasm": unitFile("Util", "helper")}))
	if err != nil {
		t.Fatalf("NewContext b: %v", err)
	}

	ua, err := a.Load(ctx, "Util")
	if err != nil {
		t.Fatalf("Load a: %v", err)
	}
	ub, err := b.Load(ctx, "Util")
	if err != nil {
		t.Fatalf("Load b: %v", err)
	}
	if ua == ub {
		t.Error("same unit instance served to two unrelated contexts")
	}

	// mod-b declares no dependency on mod-a, so mod-a's exclusive unit is
	// invisible to it.
	c, err := NewContext(ctx, reg, descriptor("mod-c"),
		writeMod(t, map[string][]byte{"lib/Exclusive.wasm": unitFile("Exclusive")}))
	if err != nil {
		t.Fatalf("NewContext c: %v", err)
	}
	if _, err := c.Load(ctx, "Util"); !errors.IsNotFound(err) {
		t.Errorf("expected not-found for undeclared dependency, got %v", err)
	}
	if _, err := b.Load(ctx, "Exclusive"); !errors.IsNotFound(err) {
		t.Errorf("expected not-found for undeclared dependency, got %v", err)
	}
}

func TestDependency_Resolution(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	core, err := NewContext(ctx, reg, descriptor("core"),
		writeMod(t, map[string][]byte{"lib/CoreUtil.wasm": unitFile("CoreUtil", "helper")}))
	if err != nil {
		t.Fatalf("NewContext core: %v", err)
	}

	addon, err := NewContext(ctx, reg, descriptor("addon", mod.Dependency{ID: "core"}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext addon: %v", err)
	}

	fromAddon, err := addon.Load(ctx, "CoreUtil")
	if err != nil {
		t.Fatalf("Load via dependency: %v", err)
	}
	fromCore, err := core.Load(ctx, "CoreUtil")
	if err != nil {
		t.Fatalf("Load from owner: %v", err)
	}
	if fromAddon != fromCore {
		t.Error("dependency resolution did not return the owner's unit instance")
	}

	if got := reg.InfoForUnit(fromAddon); got == nil || got.ID != "core" {
		t.Errorf("InfoForUnit = %v, want core's descriptor", got)
	}
}

func TestDependency_RegistrationOrderMatters(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	// The dependency is declared but not yet registered, so the link is
	// never established, even if the dependency shows up later.
	addon, err := NewContext(ctx, reg, descriptor("addon", mod.Dependency{ID: "core"}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext addon: %v", err)
	}

	if _, err := NewContext(ctx, reg, descriptor("core"),
		writeMod(t, map[string][]byte{"lib/CoreUtil.wasm": unitFile("CoreUtil", "helper")})); err != nil {
		t.Fatalf("NewContext core: %v", err)
	}

	if _, err := addon.Load(ctx, "CoreUtil"); !errors.IsNotFound(err) {
		t.Errorf("expected not-found for late-registered dependency, got %v", err)
	}
}

func TestDependency_OneHopOnly(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	if _, err := NewContext(ctx, reg, descriptor("base"),
		writeMod(t, map[string][]byte{"lib/Deep.wasm": unitFile("Deep")})); err != nil {
		t.Fatalf("NewContext base: %v", err)
	}
	middle, err := NewContext(ctx, reg, descriptor("middle", mod.Dependency{ID: "base"}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext middle: %v", err)
	}
	top, err := NewContext(ctx, reg, descriptor("top", mod.Dependency{ID: "middle"}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext top: %v", err)
	}

	if _, err := middle.Load(ctx, "Deep"); err != nil {
		t.Errorf("direct dependency resolution failed: %v", err)
	}
	if _, err := top.Load(ctx, "Deep"); !errors.IsNotFound(err) {
		t.Errorf("transitive resolution should miss, got %v", err)
	}
}

func TestDependency_VersionConstraint(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	coreDesc := &mod.Descriptor{ID: "core", Version: semver.New("1.2.0")}
	if _, err := NewContext(ctx, reg, coreDesc,
		writeMod(t, map[string][]byte{"lib/CoreUtil.wasm": unitFile("CoreUtil")})); err != nil {
		t.Fatalf("NewContext core: %v", err)
	}

	tooNew, err := NewContext(ctx, reg,
		descriptor("wants-newer", mod.Dependency{ID: "core", Constraint: semver.New("1.5.0")}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext wants-newer: %v", err)
	}
	if _, err := tooNew.Load(ctx, "CoreUtil"); !errors.IsNotFound(err) {
		t.Errorf("incompatible dependency should not link, got %v", err)
	}

	ok, err := NewContext(ctx, reg,
		descriptor("wants-older", mod.Dependency{ID: "core", Constraint: semver.New("1.1.0")}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext wants-older: %v", err)
	}
	if _, err := ok.Load(ctx, "CoreUtil"); err != nil {
		t.Errorf("compatible dependency should link: %v", err)
	}
}

func TestLoad_ImportsAcrossContexts(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	if _, err := NewContext(ctx, reg, descriptor("core"),
		writeMod(t, map[string][]byte{"lib/CoreUtil.wasm": unitFile("CoreUtil", "helper")})); err != nil {
		t.Fatalf("NewContext core: %v", err)
	}

	addonUnit := wasmbin.Build(wasmbin.ModuleSpec{
		Name:    "Addon",
		Imports: []wasmbin.Import{{Module: "CoreUtil", Name: "helper"}},
		Exports: []string{"run"},
	})
	addon, err := NewContext(ctx, reg, descriptor("addon", mod.Dependency{ID: "core"}),
		writeMod(t, map[string][]byte{"lib/Addon.wasm": addonUnit}))
	if err != nil {
		t.Fatalf("NewContext addon: %v", err)
	}

	u, err := addon.Load(ctx, "Addon")
	if err != nil {
		t.Fatalf("Load Addon: %v", err)
	}
	if _, err := u.Call(ctx, "run"); err != nil {
		t.Errorf("Call run: %v", err)
	}
}

func TestBlacklist(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Engine().HostModule("host-api")

	tests := []struct {
		name string
		want bool
	}{
		{"host-api", true},
		{"HOST-API", true},
		{engine.WASIModuleName, true},
		{"mod-analyzer", true},
		{"Mod-Analyzer-API", true},
		{"Util", false},
	}
	for _, tt := range tests {
		if got := reg.Blacklisted(tt.name); got != tt.want {
			t.Errorf("Blacklisted(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLoad_BlacklistedUnitRejected(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	reg.Engine().HostModule("host-api")

	c, err := NewContext(ctx, reg, descriptor("sneaky-mod"),
		writeMod(t, map[string][]byte{"lib/host-api.wasm": unitFile("host-api", "fake")}))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	if got := len(c.Units()); got != 0 {
		t.Fatalf("blacklisted unit was tracked: %v", c.Units())
	}
	if _, err := c.LoadFromPath(ctx, "lib/host-api.wasm"); !errors.IsBlacklisted(err) {
		t.Errorf("expected blacklist failure, got %v", err)
	}

	// The name still resolves, to the host's unit.
	u, err := c.Load(ctx, "host-api")
	if err != nil {
		t.Fatalf("Load host-api: %v", err)
	}
	if !u.Host() {
		t.Error("resolved unit is not the host's")
	}
	if reg.InfoForUnit(u) != nil {
		t.Error("host unit should have no owning mod")
	}
}

func TestLoadFromPath_NameCollision(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	// Two files declare the same unit name; the first one loaded stays.
	fsys := writeMod(t, map[string][]byte{
		"lib/a.wasm": unitFile("Util", "helper"),
		"lib/b.wasm": unitFile("Util", "helper"),
	})

	c, err := NewContext(ctx, reg, descriptor("demo-mod"), fsys)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	if got := len(c.Units()); got != 1 {
		t.Fatalf("tracked units = %v, want exactly one", c.Units())
	}

	first, err := c.Load(ctx, "Util")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	again, err := c.LoadFromPath(ctx, "lib/b.wasm")
	if err != nil {
		t.Fatalf("LoadFromPath b: %v", err)
	}
	if first != again {
		t.Error("colliding load did not return the tracked unit")
	}
}

func TestLoadFromPath_UnnamedUsesFileStem(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	fsys := writeMod(t, map[string][]byte{
		"lib/Physics.wasm": wasmbin.Build(wasmbin.ModuleSpec{Exports: []string{"step"}}),
	})

	c, err := NewContext(ctx, reg, descriptor("demo-mod"), fsys)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	u, err := c.Load(ctx, "Physics")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if u.Name() != "Physics" {
		t.Errorf("unit name = %q, want Physics", u.Name())
	}
}

func TestDispose(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	c, err := NewContext(ctx, reg, descriptor("demo-mod"),
		writeMod(t, map[string][]byte{"lib/Util.wasm": unitFile("Util", "helper")}))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	u, err := c.Load(ctx, "Util")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := c.Dispose(ctx); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	if reg.Context("demo-mod") != nil {
		t.Error("disposed context still registered")
	}
	if reg.InfoForUnit(u) != nil {
		t.Error("disposed context's unit still mapped")
	}
	if _, err := c.Load(ctx, "Util"); !errors.IsDisposed(err) {
		t.Errorf("Load after dispose: got %v, want disposed", err)
	}
	if _, err := c.LoadFromPath(ctx, "lib/Util.wasm"); !errors.IsDisposed(err) {
		t.Errorf("LoadFromPath after dispose: got %v, want disposed", err)
	}
	if _, err := c.LoadNative("physics"); !errors.IsDisposed(err) {
		t.Errorf("LoadNative after dispose: got %v, want disposed", err)
	}

	if err := c.Dispose(ctx); err != nil {
		t.Errorf("second Dispose: %v", err)
	}
}

func TestDispose_FreesDependents(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	core, err := NewContext(ctx, reg, descriptor("core"),
		writeMod(t, map[string][]byte{"lib/CoreUtil.wasm": unitFile("CoreUtil", "helper")}))
	if err != nil {
		t.Fatalf("NewContext core: %v", err)
	}
	addon, err := NewContext(ctx, reg, descriptor("addon", mod.Dependency{ID: "core"}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext addon: %v", err)
	}
	if _, err := addon.Load(ctx, "CoreUtil"); err != nil {
		t.Fatalf("Load via dependency: %v", err)
	}

	// Disposing the dependent must not tear down the dependency's units.
	if err := addon.Dispose(ctx); err != nil {
		t.Fatalf("Dispose addon: %v", err)
	}
	if _, err := core.Load(ctx, "CoreUtil"); err != nil {
		t.Errorf("dependency unit unusable after dependent disposal: %v", err)
	}
}

func TestRegistryClose_DisposesAll(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.New(ctx, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer eng.Close(ctx)
	reg := NewRegistry(eng)

	core, err := NewContext(ctx, reg, descriptor("core"),
		writeMod(t, map[string][]byte{"lib/CoreUtil.wasm": unitFile("CoreUtil")}))
	if err != nil {
		t.Fatalf("NewContext core: %v", err)
	}
	addon, err := NewContext(ctx, reg, descriptor("addon", mod.Dependency{ID: "core"}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext addon: %v", err)
	}

	if err := reg.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if reg.Context("core") != nil || reg.Context("addon") != nil {
		t.Error("contexts survived registry close")
	}
	if _, err := core.Load(ctx, "CoreUtil"); !errors.IsDisposed(err) {
		t.Errorf("core not disposed: %v", err)
	}
	if _, err := addon.Load(ctx, "CoreUtil"); !errors.IsDisposed(err) {
		t.Errorf("addon not disposed: %v", err)
	}
}

func TestInfoForCaller(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	c, err := NewContext(ctx, reg, descriptor("demo-mod"),
		writeMod(t, map[string][]byte{"lib/Util.wasm": unitFile("Util", "helper")}))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	u, err := c.Load(ctx, "Util")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := reg.InfoForCaller(ctx); got != nil {
		t.Errorf("plain context should have no calling mod, got %v", got)
	}
	if got := reg.InfoForCaller(engine.WithUnit(ctx, u)); got == nil || got.ID != "demo-mod" {
		t.Errorf("InfoForCaller = %v, want demo-mod", got)
	}
}

// fakeDL is a linker that records opens and closes instead of touching the
// real one. Handles are the file contents' length, offset to stay nonzero.
func fakeDL() (native.DL, *int, *int) {
	opens := 0
	closes := 0
	dl := native.DL{
		Open: func(path string) (uintptr, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return 0, err
			}
			opens++
			return uintptr(len(data) + 1), nil
		},
		Close: func(handle uintptr) error {
			closes++
			return nil
		},
		Sym: func(handle uintptr, name string) (uintptr, error) {
			return handle + 1, nil
		},
	}
	return dl, &opens, &closes
}

func nativePlatformDir(t *testing.T) string {
	t.Helper()
	dir, err := native.PlatformDir()
	if err != nil {
		t.Skipf("host platform has no native library mapping: %v", err)
	}
	return dir
}

func TestLoadNative(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	platform := nativePlatformDir(t)

	fsys := writeMod(t, map[string][]byte{
		fmt.Sprintf("lib/%s/physics", platform): []byte("native code"),
	})
	c, err := NewContext(ctx, reg, descriptor("demo-mod"), fsys)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	dl, opens, _ := fakeDL()
	c.nld = native.NewLoaderWithDL(dl)

	h, err := c.LoadNative("physics")
	if err != nil {
		t.Fatalf("LoadNative: %v", err)
	}
	if h.Name() != "physics" {
		t.Errorf("handle name = %q, want physics", h.Name())
	}

	again, err := c.LoadNative("physics")
	if err != nil {
		t.Fatalf("second LoadNative: %v", err)
	}
	if h != again {
		t.Error("repeated LoadNative returned a different handle")
	}
	if *opens != 1 {
		t.Errorf("library opened %d times, want 1", *opens)
	}

	if _, err := c.LoadNative("absent"); !errors.IsNotFound(err) {
		t.Errorf("expected not-found for absent library, got %v", err)
	}
}

func TestLoadNative_DependencyChain(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	platform := nativePlatformDir(t)

	core, err := NewContext(ctx, reg, descriptor("core"),
		writeMod(t, map[string][]byte{
			fmt.Sprintf("lib/%s/corelib", platform): []byte("core native"),
		}))
	if err != nil {
		t.Fatalf("NewContext core: %v", err)
	}
	dl, _, _ := fakeDL()
	core.nld = native.NewLoaderWithDL(dl)

	addon, err := NewContext(ctx, reg, descriptor("addon", mod.Dependency{ID: "core"}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext addon: %v", err)
	}

	h, err := addon.LoadNative("corelib")
	if err != nil {
		t.Fatalf("LoadNative via dependency: %v", err)
	}
	own, err := core.LoadNative("corelib")
	if err != nil {
		t.Fatalf("LoadNative from owner: %v", err)
	}
	if h != own {
		t.Error("dependency resolution did not return the owner's handle")
	}
}

func TestDispose_FreesNativeHandlesOnce(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	platform := nativePlatformDir(t)

	fsys := writeMod(t, map[string][]byte{
		fmt.Sprintf("lib/%s/physics", platform): []byte("native code"),
	})
	c, err := NewContext(ctx, reg, descriptor("demo-mod"), fsys)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	dl, _, closes := fakeDL()
	c.nld = native.NewLoaderWithDL(dl)

	h, err := c.LoadNative("physics")
	if err != nil {
		t.Fatalf("LoadNative: %v", err)
	}

	if err := c.Dispose(ctx); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := c.Dispose(ctx); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("explicit Close after dispose: %v", err)
	}

	if *closes != 1 {
		t.Errorf("native handle closed %d times, want 1", *closes)
	}
}

func TestDispose_LeavesDependencyNativeHandles(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	platform := nativePlatformDir(t)

	core, err := NewContext(ctx, reg, descriptor("core"),
		writeMod(t, map[string][]byte{
			fmt.Sprintf("lib/%s/corelib", platform): []byte("core native"),
		}))
	if err != nil {
		t.Fatalf("NewContext core: %v", err)
	}
	dl, _, closes := fakeDL()
	core.nld = native.NewLoaderWithDL(dl)

	addon, err := NewContext(ctx, reg, descriptor("addon", mod.Dependency{ID: "core"}),
		writeMod(t, nil))
	if err != nil {
		t.Fatalf("NewContext addon: %v", err)
	}
	if _, err := addon.LoadNative("corelib"); err != nil {
		t.Fatalf("LoadNative via dependency: %v", err)
	}

	if err := addon.Dispose(ctx); err != nil {
		t.Fatalf("Dispose addon: %v", err)
	}
	if *closes != 0 {
		t.Errorf("dependent disposal closed the owner's handle %d times", *closes)
	}

	if err := core.Dispose(ctx); err != nil {
		t.Fatalf("Dispose core: %v", err)
	}
	if *closes != 1 {
		t.Errorf("owner disposal closed the handle %d times, want 1", *closes)
	}
}
