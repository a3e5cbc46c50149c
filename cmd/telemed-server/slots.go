package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage generated time slots",
	}

	regen := &cobra.Command{
		Use:   "regenerate",
		Short: "Fill the slot horizon from recurring availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetInt64("doctor")
			days, _ := cmd.Flags().GetInt("days")

			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			svc := rt.schedulingService(rt.identityService())
			if days <= 0 {
				days = svc.HorizonDays()
			}

			if doctorID > 0 {
				inserted, err := svc.GenerateSlots(cmd.Context(), doctorID, days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "doctor %d: %d new slot(s)\n", doctorID, len(inserted))
				return nil
			}

			n, err := svc.RegenerateAll(cmd.Context(), days)
			fmt.Fprintf(cmd.OutOrStdout(), "%d new slot(s)\n", n)
			return err
		},
	}
	regen.Flags().Int64("doctor", 0, "Only regenerate this doctor's slots")
	regen.Flags().Int("days", 0, "Days ahead to generate (defaults to SLOT_HORIZON_DAYS)")
	cmd.AddCommand(regen)
	return cmd
}
