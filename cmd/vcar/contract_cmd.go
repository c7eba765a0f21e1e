package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vcar-client/internal/api"
	"vcar-client/internal/domain"
	"vcar-client/internal/lifecycle"
	"vcar-client/internal/utils"
)

// loadConcurrency bounds the per-contract lookups of "contract list".
const loadConcurrency = 4

func newContractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "List, inspect, sign and download rental contracts",
	}
	cmd.AddCommand(
		newContractListCmd(a),
		newContractShowCmd(a),
		newContractSignCmd(a),
		&cobra.Command{
			Use:   "render <contract-id>",
			Short: "Download the filled contract document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				vm, err := a.viewModel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.saveDocument(cmd.Context(), vm.RenderContract)
			},
		},
	)
	return cmd
}

type listedContract struct {
	contract domain.Contract
	role     string
	state    lifecycle.State
	actions  []lifecycle.Action
}

func newContractListCmd(a *app) *cobra.Command {
	var as string
	params := domain.ContractListParams{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts as lessee, lessor or both",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session.RequireUser(); err != nil {
				return err
			}
			ctx := cmd.Context()

			var lesseePage, lessorPage *api.Page[domain.Contract]
			g, gctx := errgroup.WithContext(ctx)
			if as == "lessee" || as == "all" {
				g.Go(func() error {
					p, err := a.api.ListLesseeContracts(gctx, params)
					lesseePage = p
					return err
				})
			}
			if as == "lessor" || as == "all" {
				g.Go(func() error {
					p, err := a.api.ListLessorContracts(gctx, params)
					lessorPage = p
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			var rows []*listedContract
			if lesseePage != nil {
				for _, c := range lesseePage.Items {
					rows = append(rows, &listedContract{contract: c, role: "lessee"})
				}
			}
			if lessorPage != nil {
				for _, c := range lessorPage.Items {
					rows = append(rows, &listedContract{contract: c, role: "lessor"})
				}
			}
			if err := a.deriveStates(ctx, rows); err != nil {
				return err
			}
			printContracts(a, rows)
			if lesseePage != nil {
				fmt.Fprintf(a.out, "lessee: page %d/%d, %d contracts\n", lesseePage.Meta.Page+1, lesseePage.Meta.PageCount, lesseePage.Meta.ItemCount)
			}
			if lessorPage != nil {
				fmt.Fprintf(a.out, "lessor: page %d/%d, %d contracts\n", lessorPage.Meta.Page+1, lessorPage.Meta.PageCount, lessorPage.Meta.ItemCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "all", "Perspective: lessee, lessor or all")
	cmd.Flags().IntVar(&params.Page, "page", 0, "Page number, 0 is the first")
	cmd.Flags().IntVar(&params.Size, "size", 10, "Page size")
	cmd.Flags().BoolVar(&params.SortDescending, "desc", true, "Newest first")
	return cmd
}

// deriveStates loads a view-model per contract to find its lifecycle state.
func (a *app) deriveStates(ctx context.Context, rows []*listedContract) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, row := range rows {
		row := row // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			vm, err := a.newViewModel(row.contract.ID)
			if err != nil {
				return err
			}
			if err := vm.Load(gctx); err != nil {
				return fmt.Errorf("contract %s: %w", row.contract.ID, err)
			}
			row.state = vm.State()
			row.actions = vm.Actions()
			return nil
		})
	}
	return g.Wait()
}

func printContracts(a *app, rows []*listedContract) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].contract.CreatedAt.After(rows[j].contract.CreatedAt.Time)
	})
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAS\tVEHICLE\tFROM\tTO\tSTATE\tACTIONS")
	for _, r := range rows {
		c := r.contract
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\t%s\n",
			c.ID, r.role, c.VehicleBrand, c.VehicleName,
			formatDay(c.RentalStartDate, a.cfg.Location()), formatDay(c.RentalEndDate, a.cfg.Location()),
			r.state, joinActions(r.actions))
	}
	w.Flush()
}

func newContractShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <contract-id>",
		Short: "Show a contract, its lifecycle state and the available actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := a.viewModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c, h := vm.Snapshot()
			loc := a.cfg.Location()

			fmt.Fprintf(a.out, "Contract:  %s (%s)\n", c.ID, c.Status)
			fmt.Fprintf(a.out, "Vehicle:   %s %s, %s\n", c.VehicleBrand, c.VehicleName, c.VehicleLicensePlate)
			fmt.Fprintf(a.out, "Lessor:    %s\n", c.LessorName)
			fmt.Fprintf(a.out, "Lessee:    %s\n", c.LesseeName)
			fmt.Fprintf(a.out, "Period:    %s - %s\n", formatDay(c.RentalStartDate, loc), formatDay(c.RentalEndDate, loc))
			if cost, err := utils.CalculateRentalCost(c.RentalStartDate.Time, c.RentalEndDate.Time, c.RentalPricePerDay, c.TotalRentalValue, loc); err == nil {
				fmt.Fprintf(a.out, "Price:     %d day(s) x %s = %s VND", cost.Days, utils.FormatMoney(cost.PricePerDay), utils.FormatMoney(cost.BaseCost))
				if cost.Surcharge > 0 {
					fmt.Fprintf(a.out, " (+%s surcharge)", utils.FormatMoney(cost.Surcharge))
				}
				fmt.Fprintln(a.out)
				fmt.Fprintf(a.out, "Total:     %s VND\n", utils.FormatMoney(cost.QuotedTotal))
			}
			if h != nil {
				fmt.Fprintf(a.out, "Handover:  %s (lessee approved: %t, lessor approved: %t)\n", h.Status, h.LesseeApproved, h.LessorApproved)
			}
			fmt.Fprintf(a.out, "You are:   %s\n", vm.Perspective())
			fmt.Fprintf(a.out, "State:     %s\n", vm.State())
			fmt.Fprintf(a.out, "Actions:   %s\n", joinActions(vm.Actions()))
			return nil
		},
	}
}

func newContractSignCmd(a *app) *cobra.Command {
	var imagePath string
	cmd := &cobra.Command{
		Use:   "sign <contract-id>",
		Short: "Sign a pending contract with the wallet and pay the signing fee",
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
			res, err := vm.Sign(ctx, image)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Fee transaction: %s\n", res.TxHash)
			if res.PaymentURL != "" {
				fmt.Fprintf(a.out, "Payment URL:     %s\n", res.PaymentURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "signature-image", "", "Optional handwritten signature image to upload")
	return cmd
}

func joinActions(actions []lifecycle.Action) string {
	if len(actions) == 0 {
		return "-"
	}
	s := make([]string, len(actions))
	for i, a := range actions {
		s[i] = string(a)
	}
	return strings.Join(s, ",")
}
