package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	anm "github.com/flywave/go-anm"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	input := flag.String("input", "", "Input glTF/glb file")
	output := flag.String("output", "", "Output xfbin (default: input with .xfbin extension)")
	chunkPath := flag.String("path", "", "Chunk path stored in the container (default: c/<name>/max/<name>.max)")
	fps := flag.Float64("fps", 0, "Sampling rate for glTF keyframe times (default: 30)")
	inject := flag.Bool("inject", false, "Replace or append pages in an existing xfbin")
	loop := flag.Bool("loop", false, "Mark animations as looping")
	manifest := flag.String("manifest", "", "Directory for per-page _page.json manifests")
	inspect := flag.String("inspect", "", "Print the contents of an xfbin and exit")

	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	if *inspect != "" {
		if err := inspectXfbin(*inspect); err != nil {
			logger.Fatalf("inspect %s: %v", *inspect, err)
		}
		return
	}

	var cfg anm.Config
	if *configFile != "" {
		var err error
		cfg, err = anm.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg.Resolve(anm.Flags{
		Input:     *input,
		Output:    *output,
		ChunkPath: *chunkPath,
		FPS:       *fps,
		Inject:    *inject,
		Loop:      *loop,
	})
	if *manifest != "" {
		cfg.ManifestDir = *manifest
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	all, err := anm.LoadGltfAnimations(cfg.Input, anm.GltfOptions{
		ChunkPath: cfg.ChunkPath,
		FPS:       cfg.FPS,
		Loop:      cfg.Loop,
	})
	if err != nil {
		logger.Fatalf("load %s: %v", cfg.Input, err)
	}
	var anims []*anm.Animation
	for _, a := range all {
		if cfg.Selected(a.Name) {
			anims = append(anims, a)
		}
	}
	if len(anims) == 0 {
		logger.Fatalf("no animation in %s matches %v", cfg.Input, cfg.Animations)
	}

	exp := anm.NewExporter(nil, cfg.Options())
	exp.Logger = logger
	exp.ManifestDir = cfg.ManifestDir
	if _, err := exp.Export(anims, cfg.Output, cfg.Inject); err != nil {
		logger.Fatalf("export: %v", err)
	}
}

func inspectXfbin(path string) error {
	x, err := anm.XfbinReadFrom(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: version %d, %d pages\n", path, x.Version, len(x.Pages))
	for i, p := range x.Pages {
		fmt.Printf("  Page[%d]: maps=%d, references=%d, chunks=%d\n", i, len(p.StructInfos), len(p.StructReferences), len(p.Chunks))
		for _, c := range p.Chunks {
			si := c.ChunkInfo()
			fmt.Printf("    %s %q (%s)\n", si.Type, si.Name, si.Path)
		}
		if a := p.Anm(); a != nil {
			fmt.Printf("    frames=%d loop=%v clumps=%d parents=%d entries=%d (other %d)\n",
				a.FrameCount, a.Loop, len(a.Clumps), len(a.CoordParents), len(a.Entries), a.OtherEntryCount())
		}
	}
	return nil
}
