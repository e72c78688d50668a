package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meltforce/liftlog/internal/analytics"
)

var (
	estimateWeight float64
	estimateReps   int
	estimateRPE    float64
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate a one-rep max from a set",
	Example: `  liftlog estimate --weight 100 --reps 5
  liftlog estimate --weight 100 --reps 5 --rpe 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var rpe *float64
		if cmd.Flags().Changed("rpe") {
			rpe = &estimateRPE
		}
		est := analytics.EstimateOneRepMax(estimateWeight, estimateReps, rpe)
		if est == 0 {
			return errors.New("weight and reps must be positive and rpe within 1-10")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "estimated 1RM: %.1f kg\n", est)
		return nil
	},
}

func init() {
	estimateCmd.Flags().Float64Var(&estimateWeight, "weight", 0, "weight lifted in kg")
	estimateCmd.Flags().IntVar(&estimateReps, "reps", 0, "repetitions performed")
	estimateCmd.Flags().Float64Var(&estimateRPE, "rpe", 10, "rate of perceived exertion (1-10)")
	estimateCmd.MarkFlagRequired("weight")
	estimateCmd.MarkFlagRequired("reps")
}
