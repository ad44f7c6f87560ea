package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "holestpay",
	Short: "HolestPay integration service",
	Long:  "Receives HolestPay payment results, reconciles store orders and syncs merchant order changes back to HolestPay.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
