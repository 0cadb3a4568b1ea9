package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/mod-host/engine"
	"github.com/wippyai/mod-host/loader"
	"github.com/wippyai/mod-host/mod"
	"github.com/wippyai/mod-host/modfs"
	"github.com/wippyai/mod-host/native"
)

func main() {
	var (
		modsDir     = flag.String("mods", "", "Directory containing mods (subdirectories or .zip archives)")
		call        = flag.String("call", "", "Function to call, as mod/Unit.func")
		list        = flag.Bool("list", false, "List loaded mods, units and exports, then exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *modsDir == "" {
		fmt.Fprintln(os.Stderr, "Usage: modhost -mods <dir> -list")
		fmt.Fprintln(os.Stderr, "       modhost -mods <dir> -call <mod/Unit.func>")
		fmt.Fprintln(os.Stderr, "       modhost -mods <dir> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			engine.SetLogger(log.Named("engine"))
			loader.SetLogger(log.Named("loader"))
			native.SetLogger(log.Named("native"))
		}
	}

	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
		os.Exit(1)
	}

	if err := run(*modsDir, *call, *list, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// discoveredMod is one mod found on disk, manifest already read.
type discoveredMod struct {
	desc *mod.Descriptor
	fsys modfs.FS
	path string
}

func run(modsDir, call string, list, interactive bool) error {
	ctx := context.Background()

	mods, err := discoverMods(modsDir)
	if err != nil {
		return err
	}
	if len(mods) == 0 {
		return fmt.Errorf("no mods found in %s", modsDir)
	}

	eng, err := engine.New(ctx, nil)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close(ctx)

	reg := loader.NewRegistry(eng)
	defer reg.Close(ctx)

	for _, m := range sortByDependencies(mods) {
		if _, err := loader.NewContext(ctx, reg, m.desc, m.fsys); err != nil {
			return fmt.Errorf("load mod %s: %w", m.desc.ID, err)
		}
	}

	if interactive {
		return runInteractive(reg)
	}

	if list || call == "" {
		printMods(reg)
		return nil
	}

	return callFunction(ctx, reg, call)
}

// discoverMods scans one directory level: subdirectories and .zip archives
// containing a manifest become mods; everything else is skipped.
func discoverMods(dir string) ([]*discoveredMod, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read mods directory: %w", err)
	}

	var mods []*discoveredMod
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())

		var fsys modfs.FS
		switch {
		case e.IsDir():
			fsys = modfs.NewDirFS(full)
		case strings.HasSuffix(e.Name(), ".zip"):
			data, err := os.ReadFile(full)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", full, err)
			}
			if fsys, err = modfs.NewZipFS(data); err != nil {
				return nil, fmt.Errorf("open %s: %w", full, err)
			}
		default:
			continue
		}

		if !fsys.FileExists(mod.ManifestName) {
			continue
		}
		desc, err := mod.ReadManifest(fsys)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", full, err)
		}
		mods = append(mods, &discoveredMod{desc: desc, fsys: fsys, path: full})
	}
	return mods, nil
}

// sortByDependencies orders mods so declared dependencies come before their
// dependents. Ties and cycles keep discovery order.
func sortByDependencies(mods []*discoveredMod) []*discoveredMod {
	placed := make(map[string]bool, len(mods))
	byID := make(map[string]*discoveredMod, len(mods))
	for _, m := range mods {
		byID[m.desc.ID] = m
	}

	var out []*discoveredMod
	var visit func(m *discoveredMod, seen map[string]bool)
	visit = func(m *discoveredMod, seen map[string]bool) {
		if placed[m.desc.ID] || seen[m.desc.ID] {
			return
		}
		seen[m.desc.ID] = true
		for _, dep := range m.desc.Dependencies {
			if d, ok := byID[dep.ID]; ok {
				visit(d, seen)
			}
		}
		placed[m.desc.ID] = true
		out = append(out, m)
	}
	for _, m := range mods {
		visit(m, make(map[string]bool))
	}
	return out
}

func printMods(reg *loader.Registry) {
	for _, c := range reg.Contexts() {
		desc := c.Descriptor()
		if desc.Version != nil {
			fmt.Printf("%s %s\n", desc.ID, desc.Version)
		} else {
			fmt.Printf("%s\n", desc.ID)
		}
		for _, dep := range desc.Dependencies {
			fmt.Printf("  requires %s\n", dep.ID)
		}
		for _, name := range c.Units() {
			fmt.Printf("  unit %s\n", name)
		}
	}
}

// callFunction invokes one nullary exported function, spelled mod/Unit.func.
func callFunction(ctx context.Context, reg *loader.Registry, spec string) error {
	modID, rest, ok := strings.Cut(spec, "/")
	if !ok {
		return fmt.Errorf("bad call spec %q, want mod/Unit.func", spec)
	}
	unitName, funcName, ok := strings.Cut(rest, ".")
	if !ok {
		return fmt.Errorf("bad call spec %q, want mod/Unit.func", spec)
	}

	c := reg.Context(modID)
	if c == nil {
		return fmt.Errorf("mod %s is not loaded", modID)
	}
	u, err := c.Load(ctx, unitName)
	if err != nil {
		return err
	}

	results, err := u.Call(ctx, funcName)
	if err != nil {
		return fmt.Errorf("call %s: %w", spec, err)
	}
	if len(results) > 0 {
		fmt.Printf("Result: %v\n", results)
	}
	return nil
}
