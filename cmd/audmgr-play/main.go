// SPDX-License-Identifier: EPL-2.0

// Command audmgr-play plays audio files through an audmgr context, one
// after the other.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
