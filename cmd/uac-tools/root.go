package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "uac-tools",
	Short: "Inspect and stream from USB Audio Class 1.0 devices",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cobra.OnInitialize(func() {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	})
}
