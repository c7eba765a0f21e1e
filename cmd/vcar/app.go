package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"vcar-client/internal/api"
	"vcar-client/internal/config"
	"vcar-client/internal/document"
	"vcar-client/internal/domain"
	"vcar-client/internal/lifecycle"
	"vcar-client/internal/logger"
	"vcar-client/internal/repository/sqlite"
	"vcar-client/internal/security"
	"vcar-client/internal/service"
	"vcar-client/internal/session"
	"vcar-client/internal/storage"
	"vcar-client/internal/wallet"
)

// app holds the wired dependencies shared by all commands.
type app struct {
	cfg      *config.Config
	store    *sqlite.Store
	session  *session.Session
	api      *api.Client
	chain    *ethclient.Client
	wallet   *wallet.Wallet
	renderer *document.Renderer
	docs     *storage.LocalStore
	out      io.Writer

	reported bool
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	var configPath string

	root := &cobra.Command{
		Use:           "vcar",
		Short:         "VCar rental client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.init(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to configuration file")

	root.AddCommand(
		newSessionCmd(a),
		newContractCmd(a),
		newHandoverCmd(a),
		newReviewCmd(a),
		newNotificationsCmd(a),
		newWalletCmd(a),
	)
	return root, a
}

func (a *app) init(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Debug("Configuration loaded", "path", configPath, "api", cfg.API.BaseURL)

	store, err := sqlite.Open(ctx, cfg.State.DBPath)
	if err != nil {
		return err
	}
	a.store = store

	sess, err := session.Load(ctx, store, security.NewTokenInspector())
	if err != nil {
		return err
	}
	a.session = sess

	a.api = api.NewClient(cfg.API.BaseURL, cfg.API.AssetBaseURL, api.NewHTTPClient(cfg.API.Timeout), sess)

	var source document.TemplateSource
	if cfg.Documents.TemplateDir != "" {
		source = document.NewDirSource(cfg.Documents.TemplateDir)
	} else {
		source = document.NewCachedSource(document.NewAssetSource(a.api))
	}
	a.renderer = document.NewRenderer(source)

	docs, err := storage.NewLocalStore(cfg.State.DownloadDir)
	if err != nil {
		return err
	}
	a.docs = docs

	a.wallet = a.openWallet(ctx)
	return nil
}

// openWallet unlocks the keystore and dials the chain. Failures leave the
// wallet disconnected; wallet operations then report ErrWalletUnavailable.
func (a *app) openWallet(ctx context.Context) *wallet.Wallet {
	key, err := wallet.LoadKey(a.cfg.Wallet.KeystorePath, a.cfg.Wallet.KeystorePassword)
	if err != nil {
		logger.Debug("Wallet key unavailable", "error", err)
	}

	var chain wallet.ChainClient
	if a.cfg.Wallet.RPCURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		c, err := wallet.Dial(dialCtx, a.cfg.Wallet.RPCURL)
		if err != nil {
			logger.Warn("Chain endpoint unavailable", "rpc_url", a.cfg.Wallet.RPCURL, "error", err)
		} else {
			a.chain = c
			chain = c
		}
	}
	return wallet.New(key, chain)
}

func (a *app) close() {
	if a.chain != nil {
		a.chain.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("Failed to close state database", "error", err)
		}
	}
}

func (a *app) notifications() service.NotificationService {
	return service.NewNotificationService(a.api, a.cfg.Notifications.PageSize)
}

// viewModel returns a loaded view-model for contractID.
func (a *app) viewModel(ctx context.Context, contractID string) (*lifecycle.ViewModel, error) {
	vm, err := a.newViewModel(contractID)
	if err != nil {
		return nil, err
	}
	if err := vm.Load(ctx); err != nil {
		return nil, err
	}
	return vm, nil
}

func (a *app) newViewModel(contractID string) (*lifecycle.ViewModel, error) {
	fee, err := a.cfg.SignFee()
	if err != nil {
		return nil, err
	}
	minBalance, err := a.cfg.MinBalance()
	if err != nil {
		return nil, err
	}
	return lifecycle.New(contractID, lifecycle.Deps{
		API:      a.api,
		Wallet:   a.wallet,
		Renderer: a.renderer,
		Session:  a.session,
		Notifier: lifecycle.NotifierFunc(a.printNotice),
	}, lifecycle.Settings{
		OwnerAddress: common.HexToAddress(a.cfg.Wallet.OwnerAddress),
		SignFee:      fee,
		MinBalance:   minBalance,
		Location:     a.cfg.Location(),
	}), nil
}

func (a *app) printNotice(n lifecycle.Notice) {
	if n.OK {
		fmt.Fprintf(a.out, "OK  %s: %s\n", n.Action, n.Message)
		return
	}
	a.reported = true
	fmt.Fprintf(a.out, "ERR %s: %s [%s]\n", n.Action, n.Message, n.Key)
}

// readImage loads an optional signature image given on the command line.
func (a *app) readImage(ctx context.Context, path string) (*lifecycle.SignatureImage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := a.docs.ReadSignatureImage(ctx, path)
	if err != nil {
		return nil, err
	}
	return &lifecycle.SignatureImage{Filename: filepath.Base(path), Data: data}, nil
}

// saveDocument renders a document and writes it to the download directory.
func (a *app) saveDocument(ctx context.Context, render func(context.Context) (*domain.RenderedDocument, error)) error {
	doc, err := render(ctx)
	if err != nil {
		return err
	}
	path, err := a.docs.SaveDocument(ctx, doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s\n", path)
	return nil
}
