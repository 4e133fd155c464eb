package main

import (
	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/urfave/cli"
)

var logger = log.New("oxy-trace")

// setupLogging applies the configured level, then lets -v and -vv raise it.
func setupLogging(ctx *cli.Context, level log.Level) {
	log.SetLevel(level)

	if ctx.GlobalBool("v") && level > log.Info {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
