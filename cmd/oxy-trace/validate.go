package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// ValidateShaders parses and validates the three stages and prints the parameter bindings.
func ValidateShaders(ctx *cli.Context) error {
	cfg, err := resolveConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, cfg.LogLevel())

	vp := common.Viewport{Width: cfg.Window.Width, Height: cfg.Window.Height}
	if err := validateShaders(os.Stdout, shader.StagePathsIn(cfg.Shaders.Dir), vp); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}

// validateShaders loads paths with validation on and writes the program report to w.
func validateShaders(w io.Writer, paths shader.StagePaths, vp common.Viewport) error {
	loader := shader.NewLoader(shader.WithLoaderValidation(true))
	defer loader.Close()

	stages, err := loader.Load(paths)
	if err != nil {
		return err
	}
	prog, err := pipeline.NewProgram(stages)
	if err != nil {
		return err
	}
	defer prog.Release()

	displayProgram(w, prog, vp)
	return nil
}

// displayProgram renders the parameter table followed by the dispatch sizing.
func displayProgram(w io.Writer, prog *pipeline.Program, vp common.Viewport) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Parameter", "WGSL type", "Size", "Group", "Binding"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	for _, name := range camera.ParamNames {
		row := []string{name, camera.ParamWGSLTypes[name], fmt.Sprintf("%d", camera.ParamSize(name)), "-", "absent"}
		if b, ok := prog.Param(name); ok {
			row[3] = fmt.Sprintf("%d", b.Group)
			row[4] = fmt.Sprintf("%d", b.Binding)
		}
		table.Append(row)
	}
	table.Render()

	wg := prog.WorkgroupSize()
	grid := dispatch.Grid(vp, wg)
	fmt.Fprintf(w, "\nWorkgroup size: %dx%dx%d\n", wg[0], wg[1], wg[2])
	fmt.Fprintf(w, "Dispatch at %dx%d: %dx%dx%d workgroups\n", vp.Width, vp.Height, grid[0], grid[1], grid[2])
	if missing := prog.MissingParams(); len(missing) > 0 {
		fmt.Fprintf(w, "Absent parameters are not written: %v\n", missing)
	}
}
