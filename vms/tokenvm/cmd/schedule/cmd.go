// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schedule

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/meivm/vms/tokenvm/vesting"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "schedule",
		Short: "Prints the vesting timetable of a token genesis",
		RunE:  scheduleFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func scheduleFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	schedule, err := config.Genesis.Schedule()
	if err != nil {
		return err
	}
	return Print(c.OutOrStdout(), schedule, config.At)
}

// Print writes the timetable of [schedule] to [w]. When [at] is set, the
// amount unlocked at that time and the next unlock are reported as well.
func Print(w io.Writer, schedule *vesting.Schedule, at time.Time) error {
	timetable, err := schedule.Timetable()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "locked allocation %s, %s per tranche\n",
		schedule.LockedAllocation().Dec(),
		schedule.TrancheAmount().Dec(),
	)
	for _, tranche := range timetable {
		fmt.Fprintf(w, "%3d  %s  %s\n",
			tranche.Index,
			tranche.UnlockTime.UTC().Format(time.RFC3339),
			tranche.Cumulative.Dec(),
		)
	}
	if at.IsZero() {
		return nil
	}

	fmt.Fprintf(w, "unlocked at %s: %s\n",
		at.UTC().Format(time.RFC3339),
		schedule.CumulativeUnlocked(at).Dec(),
	)
	next, ok, err := schedule.NextUnlock(at)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(w, "next unlock: %s\n", next.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "fully vested")
	}
	return nil
}
