// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/device"
	"github.com/devblok/kryos/input"
	"github.com/devblok/kryos/utility/report"
	"github.com/devblok/kryos/window"
)

func init() {
	runtime.LockOSThread()
}

var (
	configFile = flag.String("config", ".env", "dotenv file with engine configuration")
	describe   = flag.Bool("describe", false, "log instance capabilities before bring-up")
)

func main() {
	flag.Parse()

	cfg, err := core.LoadConfiguration(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "koru: %+v\n", err)
		os.Exit(2)
	}

	ctx, err := core.NewContext(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "koru: %+v\n", err)
		os.Exit(2)
	}

	if err := run(ctx); err != nil {
		fatal(ctx, err)
		os.Exit(1)
	}
}

func run(ctx *core.Context) error {
	log := ctx.Log()

	win, err := window.New(ctx, ctx.Config.Window)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	defer win.Destroy()

	driver, err := device.NewVulkanDriver(win.ProcAddr())
	if err != nil {
		return err
	}

	if *describe {
		device.NewProbe(ctx, driver).Describe(win.RequiredInstanceExtensions(), runtime.GOOS, ctx.Config.Renderer.Validation)
	}

	vkContext, err := device.NewContext(ctx, driver, win)
	if err != nil {
		writeReport(ctx, driver, win, err)
		return err
	}
	defer func() {
		if err := vkContext.Destroy(); err != nil {
			log.WithError(err).Error("Render hardware teardown")
		}
	}()

	log.WithFields(logrus.Fields{
		"device": vkContext.Selected.Properties.Name,
		"queues": vkContext.Queues().Strings(),
	}).Info("Render hardware ready")

	time := core.NewTime(ctx.Config.Time)
	defer time.Stop()
	state := input.NewState(ctx)

EventLoop:
	for {
		select {
		case <-time.EventTicker().C:
			if !win.PollEvents(state) {
				break EventLoop
			}
		case <-time.FpsTicker().C:
			if state.KeyPressed(input.KeyEscape) {
				break EventLoop
			}
			state.EndFrame()
		}
	}

	log.Info("Event loop exited")
	return nil
}

// fatal logs the one diagnostic for a failed run, naming the stage
// that failed.
func fatal(ctx *core.Context, err error) {
	entry := ctx.Vulkan().WithError(err)
	if stage, ok := device.FailedStage(err); ok {
		entry = entry.WithField(core.StageField, string(stage))
	}
	if hints := errors.FlattenHints(err); hints != "" {
		entry = entry.WithField("hint", hints)
	}
	entry.Error("Render hardware bring-up failed")
}

func writeReport(ctx *core.Context, driver device.Driver, win window.Window, cause error) {
	path := ctx.Config.App.ReportPath
	if path == "" {
		return
	}
	log := ctx.Log().WithField("path", path)

	probe := device.NewProbe(ctx, driver)
	builder := report.NewBuilder(ctx.Session)
	if err := builder.Add("error.txt", []byte(fmt.Sprintf("%+v\n", cause))); err != nil {
		log.WithError(err).Warn("Report entry skipped")
	}
	capabilities := probe.Capabilities(win.RequiredInstanceExtensions(), runtime.GOOS, ctx.Config.Renderer.Validation)
	if err := builder.AddJSON("capabilities.json", capabilities); err != nil {
		log.WithError(err).Warn("Report entry skipped")
	}
	if err := builder.AddJSON("config.json", ctx.Config); err != nil {
		log.WithError(err).Warn("Report entry skipped")
	}

	if err := builder.WriteFile(path); err != nil {
		log.WithError(err).Error("Report not written")
		return
	}
	log.Info("Report written")
}
