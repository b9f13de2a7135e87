package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/grass"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	debug := flag.Bool("debug", false, "Enable debug logging (profiler stats once per second)")
	headless := flag.Bool("headless", false, "Cull on the CPU without a window")
	frames := flag.Uint64("frames", 0, "Exit after this many frames (0 = run until the window closes)")
	count := flag.Int("count", -1, "Override grass.instance_count")
	flag.Parse()

	cfg := grass.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = grass.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *count >= 0 {
		cfg.Grass.InstanceCount = *count
	}
	settings, err := cfg.Settings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *headless && *frames == 0 {
		*frames = 600
	}

	modules := []grass.Module{
		cfg.LoggingModule(*debug),
		grass.TimeModule{},
		grass.AssetServerModule{},
	}
	if !*headless {
		if err := glfw.Init(); err != nil {
			panic(err)
		}
		defer glfw.Terminate()
		modules = append(modules,
			grass.NewWindowModule(cfg.Window),
			grass.InputModule{},
		)
	}
	modules = append(modules,
		grass.NewOrbitCameraModule(cfg.Camera),
		grass.GrassModule{Settings: settings, Headless: *headless},
		grass.ScatterModule{Params: cfg.ScatterParams(), Workers: cfg.Grass.Workers},
		grass.LifecycleModule{MaxFrames: *frames},
	)

	app := grass.NewAppBuilder().
		UseStates(grass.StateRunning, grass.StateExit).
		UseModule(modules...).
		Build()
	app.Run()
}
