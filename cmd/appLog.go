/*
Copyright © 2021 Joseph Lewis <joseph@josephlewis.net>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"io"

	"github.com/spf13/cobra"
)

// appLogCmd represents the logs app command
var appLogCmd = &cobra.Command{
	Use:   "app",
	Short: "Print the diagnostic application log.",
	Long:  `Prints the JSON lines diagnostic log the shell writes for each session.`,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fd, err := cfg.ReadAppLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		_, err = io.Copy(cmd.OutOrStdout(), fd)
		return err
	},
}

func init() {
	logsCmd.AddCommand(appLogCmd)
}
