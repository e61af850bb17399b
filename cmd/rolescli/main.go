package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	a := newApp()
	root := newRootCmd(a)
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", friendlyErr(err))
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rolescli",
		Short: "Check, build and send transactions through a Zodiac Roles Modifier",
		Long: `rolescli executes role-scoped calls through a Roles Modifier.
Settings come from the environment, .env and .env.local. Every call is statically
checked before it is signed unless --no-check is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			_ = godotenv.Overload(".env.local")
			return a.init()
		},
	}
	root.PersistentFlags().BoolVar(&a.askKey, "ask-key", false, "Prompt for the private key when PRIVATE_KEY is empty")
	root.PersistentFlags().StringVar(&a.strategyFlag, "gas-strategy", "", "Override GAS_STRATEGY (normal|aggressive)")

	root.AddCommand(
		newConfigCmd(a),
		newSelectorsCmd(),
		newCheckCmd(a),
		newBuildCmd(a),
		newSendCmd(a),
		newReceiptCmd(a),
		newDecodeMultiSendCmd(),
		newCDPCmd(a),
		newFeesCmd(a),
	)
	return root
}
