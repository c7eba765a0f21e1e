package main

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"vcar-client/internal/domain"
	"vcar-client/internal/wallet"
)

func newWalletCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect the signing wallet",
	}

	balance := &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet account and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			account, err := a.wallet.Connect(ctx)
			if err != nil {
				return err
			}
			bal, err := a.wallet.GetBalance(ctx, account)
			if err != nil {
				return err
			}
			fee, err := a.cfg.SignFee()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Account: %s\n", account.Hex())
			fmt.Fprintf(a.out, "Balance: %s\n", bal.String())
			fmt.Fprintf(a.out, "Fee:     %s\n", fee.String())
			return nil
		},
	}

	var sig domain.WalletSignature
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check which account produced a signature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sig.Message == "" || sig.Signature == "" {
				return errors.New("message and signature are required")
			}
			if sig.Account != "" && !common.IsHexAddress(sig.Account) {
				return fmt.Errorf("invalid account address: %s", sig.Account)
			}
			signer, err := wallet.VerifySignature(&sig)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signer: %s\n", signer.Hex())
			if sig.Account != "" {
				fmt.Fprintln(a.out, "Signature matches account")
			}
			return nil
		},
	}
	verify.Flags().StringVar(&sig.Account, "account", "", "Expected signer address")
	verify.Flags().StringVar(&sig.Message, "message", "", "Signed message")
	verify.Flags().StringVar(&sig.Signature, "signature", "", "Hex signature")

	cmd.AddCommand(balance, verify)
	return cmd
}
