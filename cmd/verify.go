package cmd

import (
	"github.com/spf13/cobra"

	"affsync/verify"
)

var verifyStrict bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Fail when unresolved affiliate tokens remain in the content tree",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runVerify()
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyStrict, "strict", false, "also flag injected anchors with an empty href")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify() error {
	return verify.New(verifyStrict || cfg.VerifyStrict, logger).Run(cfg.DataDir)
}
