// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/devblok/kryos/device"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	env := &environment{
		newDriver: func() (device.Driver, error) {
			driver, err := device.NewVulkanDriver(nil)
			if err != nil {
				return nil, err
			}
			return driver, nil
		},
	}
	err := newRootCommand(env).Execute()
	env.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(env *environment) *cobra.Command {
	root := &cobra.Command{
		Use:          "korucli",
		Short:        "Inspect the Vulkan capabilities of this machine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.load()
		},
	}
	root.PersistentFlags().StringVar(&env.configFile, "config", ".env", "dotenv file with engine configuration")

	root.AddCommand(
		newExtensionsCommand(env),
		newLayersCommand(env),
		newDevicesCommand(env),
		newSelectCommand(env),
		newReportCommand(env),
	)
	return root
}
