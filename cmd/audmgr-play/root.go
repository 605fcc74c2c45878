// SPDX-License-Identifier: EPL-2.0

package main

import (
	"github.com/spf13/cobra"
)

func rootCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "audmgr-play [files...]",
		Short: "Play audio files through audmgr",
		Long: `Play each file in turn. Buffers are loaded synchronously, through the
background worker, or streamed in chunks depending on --mode.

Every setting can also be given as an AUDMGR_ environment variable, for
example AUDMGR_LOG_LEVEL=debug or AUDMGR_MANAGER_QUEUE_SIZE=32.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, v)
			if err != nil {
				return err
			}
			return play(cmd.Context(), settings, args)
		},
	}

	if err := setupFlags(cmd, v); err != nil {
		panic(err)
	}
	return cmd
}
