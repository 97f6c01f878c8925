// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/meivm/vms/tokenvm"
	"github.com/luxfi/meivm/vms/tokenvm/cmd/genesis"
	"github.com/luxfi/meivm/vms/tokenvm/cmd/schedule"
	"github.com/luxfi/meivm/vms/tokenvm/cmd/serve"
)

func main() {
	cmd := &cobra.Command{
		Use:     "tokenvm",
		Short:   "Runs and inspects vesting token ledgers",
		Version: tokenvm.Version.String(),
	}
	cmd.AddCommand(
		genesis.Command(),
		schedule.Command(),
		serve.Command(),
	)
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
