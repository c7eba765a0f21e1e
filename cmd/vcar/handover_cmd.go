package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vcar-client/internal/domain"
	"vcar-client/internal/lifecycle"
)

const dayLayout = "2006-01-02"

func newHandoverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handover",
		Short: "Record, approve and download vehicle handovers",
	}
	cmd.AddCommand(
		newHandoverCreateCmd(a),
		newHandoverApproveCmd(a),
		newHandoverReturnCmd(a),
		&cobra.Command{
			Use:   "approve-return <contract-id>",
			Short: "Approve the lessee's return record (lessor)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				vm, err := a.viewModel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return vm.ApproveReturn(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "render <contract-id>",
			Short: "Download the filled handover document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				vm, err := a.viewModel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.saveDocument(cmd.Context(), vm.RenderHandover)
			},
		},
	)
	return cmd
}

// vehicleFlags are the condition fields shared by the pickup and return forms.
type vehicleFlags struct {
	date          string
	hour          int
	condition     string
	damages       []string
	odometer      int
	fuel          int
	personalItems string
}

func (f *vehicleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&f.hour, "hour", time.Now().Hour(), "Hour of day, 0-23")
	cmd.Flags().StringVar(&f.condition, "condition", "", "Vehicle condition when it differs from normal")
	cmd.Flags().StringSliceVar(&f.damages, "damage", nil, "Damage entry (repeatable)")
	cmd.Flags().IntVar(&f.odometer, "odometer", 0, "Odometer reading in km")
	cmd.Flags().IntVar(&f.fuel, "fuel", 100, "Fuel level in percent")
	cmd.Flags().StringVar(&f.personalItems, "personal-items", "", "Personal items left in the vehicle")
}

func (f *vehicleFlags) day(loc *time.Location) (time.Time, error) {
	if f.date == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation(dayLayout, f.date, loc)
	if err != nil {
		return time.Time{}, &domain.FormError{Fields: map[string]string{"date": "must be YYYY-MM-DD"}}
	}
	return t, nil
}

func newHandoverCreateCmd(a *app) *cobra.Command {
	var f vehicleFlags
	var collateral string
	cmd := &cobra.Command{
		Use:   "create <contract-id>",
		Short: "Record the vehicle pickup (lessor)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := f.day(a.cfg.Location())
			if err != nil {
				return err
			}
			vm, err := a.viewModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return vm.CreateHandover(cmd.Context(), lifecycle.HandoverForm{
				HandoverDate:           day,
				HandoverHour:           f.hour,
				InitialConditionNormal: f.condition == "" && len(f.damages) == 0,
				VehicleCondition:       f.condition,
				Damages:                f.damages,
				OdometerReading:        f.odometer,
				FuelLevel:              f.fuel,
				PersonalItems:          f.personalItems,
				Collateral:             collateral,
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&collateral, "collateral", "", "Collateral handed to the lessor")
	return cmd
}

func newHandoverApproveCmd(a *app) *cobra.Command {
	var imagePath string
	cmd := &cobra.Command{
		Use:   "approve <contract-id>",
		Short: "Approve the lessor's pickup record (lessee)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			vm, err := a.viewModel(ctx, args[0])
			if err != nil {
				return err
			}
			image, err := a.readImage(ctx, imagePath)
			if err != nil {
				return err
			}
			return vm.ApproveHandover(ctx, image)
		},
	}
	cmd.Flags().StringVar(&imagePath, "signature-image", "", "Optional handwritten signature image to upload")
	return cmd
}

func newHandoverReturnCmd(a *app) *cobra.Command {
	var f vehicleFlags
	cmd := &cobra.Command{
		Use:   "return <contract-id>",
		Short: "Record the vehicle return (lessee)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := f.day(a.cfg.Location())
			if err != nil {
				return err
			}
			vm, err := a.viewModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return vm.SubmitReturn(cmd.Context(), lifecycle.ReturnForm{
				ReturnDate:              day,
				ReturnHour:              f.hour,
				ConditionMatchesInitial: f.condition == "" && len(f.damages) == 0,
				VehicleCondition:        f.condition,
				Damages:                 f.damages,
				OdometerReading:         f.odometer,
				FuelLevel:               f.fuel,
				PersonalItems:           f.personalItems,
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newReviewCmd(a *app) *cobra.Command {
	var form lifecycle.ReviewForm
	cmd := &cobra.Command{
		Use:   "review <contract-id>",
		Short: "Rate a returned rental",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := a.viewModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return vm.SubmitReview(cmd.Context(), form)
		},
	}
	cmd.Flags().IntVar(&form.Rating, "rating", 0, fmt.Sprintf("Rating from %d to %d", lifecycle.MinRating, lifecycle.MaxRating))
	cmd.Flags().StringVar(&form.Comment, "comment", "", "Optional comment")
	return cmd
}

func formatDay(ts domain.Timestamp, loc *time.Location) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.In(loc).Format("02/01/2006")
}
