// Command uac-tools exercises the library end to end: enumerating UAC
// devices, dumping their topology, streaming captured PCM to a WAV file,
// and reading feature-unit mute/volume state.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
