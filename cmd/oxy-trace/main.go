package main

import (
	"os"
	"runtime"

	"github.com/urfave/cli"
)

func init() {
	// GLFW must be driven from the main OS thread.
	runtime.LockOSThread()
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxy-trace"
	app.Usage = "interactive progressive GPU path tracer with live shader reload"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "open a window and trace the scene interactively",
			Description: `
Compile the kernel and composite shaders, then render progressively until the
window is closed. Editing any of the shader files reloads the program without
restarting; a failed build keeps the previous program running.

Controls: arrows rotate, left drag orbits, right drag pans, scroll dollies,
ctrl+scroll changes the field of view, R toggles auto-rotation, Esc quits.`,
			Flags:  renderFlags,
			Action: RenderInteractive,
		},
		{
			Name:        "validate",
			Usage:       "parse and validate the shaders without a GPU",
			Description: `Print the kernel parameter bindings and workgroup size. Exits non-zero on failure.`,
			Flags: []cli.Flag{
				shadersFlag,
				configFlag,
				cli.IntFlag{
					Name:  "width",
					Usage: "viewport width used to size the dispatch grid",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "viewport height used to size the dispatch grid",
				},
			},
			Action: ValidateShaders,
		},
		{
			Name:  "info",
			Usage: "print the GPU adapter that would be used",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "software",
					Usage: "request the software fallback adapter",
				},
			},
			Action: AdapterInfo,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
