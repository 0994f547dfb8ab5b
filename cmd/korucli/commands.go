// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/device"
	"github.com/devblok/kryos/utility/report"
)

const defaultReportPath = "koru-report.krb"

// environment is what every command needs: configuration, the engine
// context and a driver. The instance is created on first use.
type environment struct {
	configFile string
	newDriver  func() (device.Driver, error)

	ctx      *core.Context
	driver   device.Driver
	instance *device.Instance
}

func (e *environment) load() error {
	cfg, err := core.LoadConfiguration(e.configFile)
	if err != nil {
		return err
	}
	if e.ctx, err = core.NewContext(cfg); err != nil {
		return err
	}
	e.driver, err = e.newDriver()
	return err
}

// openInstance creates a plain instance without a window or validation.
func (e *environment) openInstance() (*device.Instance, error) {
	if e.instance != nil {
		return e.instance, nil
	}
	inst, err := device.NewInstance(e.ctx, e.driver, device.InstanceConfiguration{
		ApplicationName: e.ctx.Config.App.Name,
	})
	if err != nil {
		return nil, err
	}
	e.instance = inst
	return inst, nil
}

func (e *environment) candidates() ([]device.Candidate, *device.Selector, error) {
	inst, err := e.openInstance()
	if err != nil {
		return nil, nil, err
	}
	required, err := device.ParseQueueKinds(e.ctx.Config.Renderer.RequiredQueues)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "config %s", core.KeyRequiredQueues)
	}
	selector := device.NewSelector(e.ctx, e.driver, device.SelectionConfiguration{
		AllowIntegrated: e.ctx.Config.Renderer.AllowIntegrated,
		RequiredQueues:  required,
	})
	return selector.Candidates(inst.Handle()), selector, nil
}

func (e *environment) close() {
	if e.instance == nil {
		return
	}
	if err := e.instance.Destroy(); err != nil {
		e.ctx.Vulkan().WithError(err).Warn("Instance teardown")
	}
	e.instance = nil
}

type namesInfo struct {
	Available []string `json:"available"`
	Required  []string `json:"required"`
	Missing   []string `json:"missing,omitempty"`
}

type selectionInfo struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Score  uint64            `json:"score"`
	Queues map[string]uint32 `json:"queues"`
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json.MarshalIndent()")
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", raw)
	return err
}

func (e *environment) capabilities() device.CapabilitiesInfo {
	return device.NewProbe(e.ctx, e.driver).Capabilities(nil, runtime.GOOS, e.ctx.Config.Renderer.Validation)
}

func newExtensionsCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "List available and required instance extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := env.capabilities()
			return printJSON(cmd, namesInfo{
				Available: caps.InstanceExtensions,
				Required:  caps.RequiredExtensions,
				Missing:   caps.MissingExtensions,
			})
		},
	}
}

func newLayersCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "List available and required validation layers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := env.capabilities()
			return printJSON(cmd, namesInfo{
				Available: caps.Layers,
				Required:  caps.RequiredLayers,
				Missing:   caps.MissingLayers,
			})
		},
	}
}

func newDevicesCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Describe every physical device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates, _, err := env.candidates()
			if err != nil {
				return err
			}
			return printJSON(cmd, device.DescribePhysicalDevices(env.driver, candidates))
		},
	}
}

func (e *environment) selection() (selectionInfo, error) {
	candidates, selector, err := e.candidates()
	if err != nil {
		return selectionInfo{}, err
	}
	picked, families, err := selector.Pick(candidates, device.NullSurface)
	if err != nil {
		return selectionInfo{}, err
	}
	info := selectionInfo{
		Name:   picked.Properties.Name,
		Type:   picked.Properties.Type.String(),
		Score:  device.Score(picked),
		Queues: map[string]uint32{},
	}
	for _, kind := range families.Resolved() {
		info.Queues[kind.String()] = families.Family(kind)
	}
	return info, nil
}

func newSelectCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "Run physical device selection without a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := env.selection()
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		},
	}
}

func newReportCommand(env *environment) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a diagnostic bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if path == "" {
				path = env.ctx.Config.App.ReportPath
			}
			if path == "" {
				path = defaultReportPath
			}

			builder := report.NewBuilder(env.ctx.Session)
			if err := builder.AddJSON("capabilities.json", env.capabilities()); err != nil {
				return err
			}
			if err := builder.AddJSON("config.json", env.ctx.Config); err != nil {
				return err
			}
			if candidates, _, err := env.candidates(); err != nil {
				if err := builder.Add("error.txt", []byte(fmt.Sprintf("%+v\n", err))); err != nil {
					return err
				}
			} else if err := builder.AddJSON("devices.json", device.DescribePhysicalDevices(env.driver, candidates)); err != nil {
				return err
			}
			if info, err := env.selection(); err != nil {
				if err := builder.Add("selection-error.txt", []byte(fmt.Sprintf("%+v\n", err))); err != nil {
					return err
				}
			} else if err := builder.AddJSON("selection.json", info); err != nil {
				return err
			}

			if err := builder.WriteFile(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "report written to %s (%d entries)\n", path, builder.Len())
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "bundle path, defaults to "+core.KeyReportPath+" or "+defaultReportPath)
	return cmd
}
