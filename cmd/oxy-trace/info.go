package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// AdapterInfo prints the adapter the renderer would select.
func AdapterInfo(ctx *cli.Context) error {
	setupLogging(ctx, log.Notice)

	info, err := renderer.QueryAdapter(ctx.Bool("software"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	displayAdapter(os.Stdout, info)
	return nil
}

// displayAdapter renders the adapter description as a two column table.
func displayAdapter(w io.Writer, info renderer.AdapterInfo) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Adapter", "Value"})
	table.Append([]string{"Name", info.Name})
	table.Append([]string{"Vendor", info.Vendor})
	table.Append([]string{"Driver", info.Driver})
	table.Append([]string{"Type", info.AdapterType})
	table.Append([]string{"Backend", info.Backend})
	table.Append([]string{"Max storage binding", fmt.Sprintf("%d MiB", info.MaxStorageBinding>>20)})
	table.Render()
}
