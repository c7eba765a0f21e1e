package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"vcar-client/internal/document"
	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
	"vcar-client/internal/wallet"
)

// RentalAPI is the part of the rental API the lifecycle drives.
type RentalAPI interface {
	GetContractByID(ctx context.Context, id string) (*domain.Contract, error)
	GetVehicleHandoverByContractID(ctx context.Context, contractID string) (*domain.VehicleHandover, error)
	SignContract(ctx context.Context, id string, payload domain.SignaturePayload) (string, error)
	UploadSignature(ctx context.Context, contractID, filename string, image []byte) (string, error)
	CreateVehicleHandover(ctx context.Context, req domain.HandoverRequest) (*domain.VehicleHandover, error)
	LesseeApproveHandover(ctx context.Context, payload domain.SignaturePayload, handoverID string) (*domain.VehicleHandover, error)
	ReturnVehicle(ctx context.Context, handoverID string, req domain.ReturnRequest) (*domain.VehicleHandover, error)
	LessorApproveReturn(ctx context.Context, payload domain.SignaturePayload, handoverID string) (*domain.VehicleHandover, error)
	CreateReview(ctx context.Context, req domain.ReviewRequest) (*domain.Review, error)
}

type Wallet interface {
	Connect(ctx context.Context) (common.Address, error)
	SignMessage(ctx context.Context, userID string) (*domain.WalletSignature, error)
	GetBalance(ctx context.Context, addr common.Address) (decimal.Decimal, error)
	SendPayment(ctx context.Context, to common.Address, amount decimal.Decimal) (wallet.PaymentResult, error)
}

type Renderer interface {
	Render(ctx context.Context, ref document.TemplateRef, fields document.Fields) (*domain.RenderedDocument, error)
}

// Session identifies the signed-in user.
type Session interface {
	RequireUser() (domain.User, error)
}

// Notice is the outcome of one user action.
type Notice struct {
	ContractID string
	Action     Action
	OK         bool
	Key        string
	Message    string
}

type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

// Deps are the collaborators of a ViewModel.
type Deps struct {
	API      RentalAPI
	Wallet   Wallet
	Renderer Renderer
	Session  Session
	Notifier Notifier
}

// Settings are the fee and display settings of the signing flow.
type Settings struct {
	OwnerAddress common.Address
	SignFee      decimal.Decimal
	MinBalance   decimal.Decimal
	Location     *time.Location
}

// SignatureImage is an optional handwritten signature uploaded alongside a
// wallet signature.
type SignatureImage struct {
	Filename string
	Data     []byte
}

// SignResult is returned by a successful Sign.
type SignResult struct {
	PaymentURL string
	TxHash     string
}

// ViewModel holds the client view of one contract. Actions that change
// server state are serialized: while one is in flight every other returns
// domain.ErrActionInFlight without side effects.
type ViewModel struct {
	contractID string
	deps       Deps
	settings   Settings

	mu          sync.Mutex
	contract    *domain.Contract
	handover    *domain.VehicleHandover
	perspective Perspective
	busy        bool
	reviewing   bool
	rendering   map[document.TemplateRef]bool
}

func New(contractID string, deps Deps, settings Settings) *ViewModel {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	return &ViewModel{
		contractID:  contractID,
		deps:        deps,
		settings:    settings,
		perspective: PerspectiveLessee,
		rendering:   make(map[document.TemplateRef]bool),
	}
}

func (vm *ViewModel) ContractID() string {
	return vm.contractID
}

// Load fetches the contract and, once signed, its handover.
func (vm *ViewModel) Load(ctx context.Context) error {
	log := logger.WithContract(vm.contractID)
	log.Debug("Loading contract")

	user, err := vm.deps.Session.RequireUser()
	if err != nil {
		return err
	}
	contract, handover, err := vm.fetch(ctx)
	if err != nil {
		log.Warn("Failed to load contract", "error", err)
		return err
	}

	vm.mu.Lock()
	vm.contract = contract
	vm.handover = handover
	vm.perspective = PerspectiveFor(contract, user.ID)
	vm.mu.Unlock()
	return nil
}

func (vm *ViewModel) fetch(ctx context.Context) (*domain.Contract, *domain.VehicleHandover, error) {
	contract, err := vm.deps.API.GetContractByID(ctx, vm.contractID)
	if err != nil {
		return nil, nil, err
	}
	if !contract.IsSigned() {
		return contract, nil, nil
	}
	handover, err := vm.deps.API.GetVehicleHandoverByContractID(ctx, vm.contractID)
	if err != nil {
		return nil, nil, err
	}
	return contract, handover, nil
}

// Snapshot returns copies of the cached records.
func (vm *ViewModel) Snapshot() (*domain.Contract, *domain.VehicleHandover) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	var c *domain.Contract
	var h *domain.VehicleHandover
	if vm.contract != nil {
		cp := *vm.contract
		c = &cp
	}
	if vm.handover != nil {
		cp := *vm.handover
		h = &cp
	}
	return c, h
}

func (vm *ViewModel) Perspective() Perspective {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.perspective
}

func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	s, _ := Derive(vm.contract, vm.handover, vm.perspective)
	return s
}

// Actions returns the actions offered in the current state. It is empty
// while a state-changing action is in flight.
func (vm *ViewModel) Actions() []Action {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.busy {
		return nil
	}
	_, actions := Derive(vm.contract, vm.handover, vm.perspective)
	return actions
}

// Busy reports whether a state-changing action is in flight.
func (vm *ViewModel) Busy() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.busy
}

// begin claims the busy flag for a. The returned snapshot is the state the
// action runs against.
func (vm *ViewModel) begin(a Action) (*domain.Contract, *domain.VehicleHandover, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.busy {
		return nil, nil, domain.ErrActionInFlight
	}
	if err := vm.allowedLocked(a); err != nil {
		return nil, nil, err
	}
	vm.busy = true
	return vm.contract, vm.handover, nil
}

func (vm *ViewModel) end() {
	vm.mu.Lock()
	vm.busy = false
	vm.mu.Unlock()
}

func (vm *ViewModel) allowedLocked(a Action) error {
	state, actions := Derive(vm.contract, vm.handover, vm.perspective)
	if !offers(actions, a) {
		return fmt.Errorf("%w: %s in state %s", domain.ErrActionNotAllowed, a, state)
	}
	return nil
}

func (vm *ViewModel) report(a Action, err error, success string) {
	n := Notice{ContractID: vm.contractID, Action: a}
	if err != nil {
		n.Key = domain.MessageKey(err)
		n.Message = domain.UserMessage(err)
		logger.WithContract(vm.contractID).Warn("Action failed", "action", string(a), "error", err)
	} else {
		n.OK = true
		n.Message = success
		logger.WithContract(vm.contractID).Info("Action completed", "action", string(a))
	}
	vm.deps.Notifier.Notify(n)
}

// Sign runs the contract signing pipeline: connect the wallet, sign the
// identity challenge, upload the optional signature image, check the
// balance, pay the signing fee and submit the signature. The cached state
// changes only after the server accepted the signature.
func (vm *ViewModel) Sign(ctx context.Context, image *SignatureImage) (*SignResult, error) {
	if _, _, err := vm.begin(ActionSign); err != nil {
		vm.report(ActionSign, err, "")
		return nil, err
	}
	defer vm.end()

	res, err := vm.sign(ctx, image)
	vm.report(ActionSign, err, "Contract signed. Complete the payment to confirm the rental.")
	return res, err
}

func (vm *ViewModel) sign(ctx context.Context, image *SignatureImage) (*SignResult, error) {
	logger.EnterMethod("ViewModel.Sign", "contract_id", vm.contractID)
	res, err := vm.signSteps(ctx, image)
	if err != nil {
		logger.ExitMethodWithError("ViewModel.Sign", err, "contract_id", vm.contractID)
		return nil, err
	}
	logger.ExitMethod("ViewModel.Sign", "contract_id", vm.contractID, "tx_hash", res.TxHash)
	return res, nil
}

func (vm *ViewModel) signSteps(ctx context.Context, image *SignatureImage) (*SignResult, error) {
	user, err := vm.deps.Session.RequireUser()
	if err != nil {
		return nil, err
	}

	account, err := vm.deps.Wallet.Connect(ctx)
	if err != nil {
		return nil, err
	}

	sig, err := vm.signChallenge(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	imageURL, err := vm.upload(ctx, image)
	if err != nil {
		return nil, err
	}

	balance, err := vm.deps.Wallet.GetBalance(ctx, account)
	if err != nil {
		if !errors.Is(err, domain.ErrBalanceQuery) {
			err = fmt.Errorf("%w: %v", domain.ErrBalanceQuery, err)
		}
		return nil, err
	}
	if balance.LessThan(vm.settings.MinBalance) {
		return nil, fmt.Errorf("%w: have %s, need %s", domain.ErrInsufficientBalance, balance, vm.settings.MinBalance)
	}

	payment, err := vm.deps.Wallet.SendPayment(ctx, vm.settings.OwnerAddress, vm.settings.SignFee)
	if err != nil {
		return nil, err
	}
	if !payment.Success {
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentFailed, payment.ReasonCode)
	}

	paymentURL, err := vm.deps.API.SignContract(ctx, vm.contractID, sig.Payload(imageURL))
	if err != nil {
		return nil, err
	}

	vm.refreshAfterSign(ctx)
	return &SignResult{PaymentURL: paymentURL, TxHash: payment.TxHash}, nil
}

// refreshAfterSign reloads the signed contract. When the reload fails the
// cached contract is marked signed, since the server confirmed it.
func (vm *ViewModel) refreshAfterSign(ctx context.Context) {
	contract, handover, err := vm.fetch(ctx)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil {
		logger.WithContract(vm.contractID).Warn("Reload after signing failed", "error", err)
		if vm.contract != nil {
			cp := *vm.contract
			cp.Status = domain.ContractStatusSigned
			vm.contract = &cp
		}
		return
	}
	vm.contract = contract
	vm.handover = handover
}

func (vm *ViewModel) signChallenge(ctx context.Context, userID string) (*domain.WalletSignature, error) {
	sig, err := vm.deps.Wallet.SignMessage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sig == nil || sig.Signature == "" {
		return nil, fmt.Errorf("%w: empty signature", domain.ErrSignatureRejected)
	}
	return sig, nil
}

func (vm *ViewModel) upload(ctx context.Context, image *SignatureImage) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", nil
	}
	u, err := vm.deps.API.UploadSignature(ctx, vm.contractID, image.Filename, image.Data)
	if err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrSignatureUpload, err)
	}
	return u, nil
}

// ApproveHandover confirms the lessor's pickup record as the lessee.
func (vm *ViewModel) ApproveHandover(ctx context.Context, image *SignatureImage) error {
	_, h, err := vm.begin(ActionApproveHandover)
	if err != nil {
		vm.report(ActionApproveHandover, err, "")
		return err
	}
	defer vm.end()

	err = vm.withSignature(ctx, image, func(payload domain.SignaturePayload) (*domain.VehicleHandover, error) {
		return vm.deps.API.LesseeApproveHandover(ctx, payload, h.ID)
	})
	vm.report(ActionApproveHandover, err, "Handover approved.")
	return err
}

// SubmitReturn records the vehicle return as the lessee.
func (vm *ViewModel) SubmitReturn(ctx context.Context, form ReturnForm) error {
	_, h, err := vm.begin(ActionReturn)
	if err != nil {
		vm.report(ActionReturn, err, "")
		return err
	}
	defer vm.end()

	if err := form.Validate(h); err != nil {
		vm.report(ActionReturn, err, "")
		return err
	}
	err = vm.withSignature(ctx, nil, func(payload domain.SignaturePayload) (*domain.VehicleHandover, error) {
		return vm.deps.API.ReturnVehicle(ctx, h.ID, form.request(payload))
	})
	vm.report(ActionReturn, err, "Vehicle return submitted.")
	return err
}

// CreateHandover records the pickup as the lessor.
func (vm *ViewModel) CreateHandover(ctx context.Context, form HandoverForm) error {
	if _, _, err := vm.begin(ActionCreateHandover); err != nil {
		vm.report(ActionCreateHandover, err, "")
		return err
	}
	defer vm.end()

	if err := form.Validate(); err != nil {
		vm.report(ActionCreateHandover, err, "")
		return err
	}
	err := vm.withSignature(ctx, nil, func(payload domain.SignaturePayload) (*domain.VehicleHandover, error) {
		return vm.deps.API.CreateVehicleHandover(ctx, form.request(vm.contractID, payload))
	})
	vm.report(ActionCreateHandover, err, "Handover record created.")
	return err
}

// ApproveReturn confirms the lessee's return record as the lessor.
func (vm *ViewModel) ApproveReturn(ctx context.Context) error {
	_, h, err := vm.begin(ActionApproveReturn)
	if err != nil {
		vm.report(ActionApproveReturn, err, "")
		return err
	}
	defer vm.end()

	err = vm.withSignature(ctx, nil, func(payload domain.SignaturePayload) (*domain.VehicleHandover, error) {
		return vm.deps.API.LessorApproveReturn(ctx, payload, h.ID)
	})
	vm.report(ActionApproveReturn, err, "Vehicle return approved.")
	return err
}

// withSignature signs a challenge, runs call with the resulting payload and
// caches the handover the server answers with.
func (vm *ViewModel) withSignature(ctx context.Context, image *SignatureImage, call func(domain.SignaturePayload) (*domain.VehicleHandover, error)) error {
	user, err := vm.deps.Session.RequireUser()
	if err != nil {
		return err
	}
	sig, err := vm.signChallenge(ctx, user.ID)
	if err != nil {
		return err
	}
	imageURL, err := vm.upload(ctx, image)
	if err != nil {
		return err
	}

	handover, err := call(sig.Payload(imageURL))
	if err != nil {
		return err
	}
	if handover == nil || handover.ID == "" {
		handover, err = vm.deps.API.GetVehicleHandoverByContractID(ctx, vm.contractID)
		if err != nil {
			logger.WithContract(vm.contractID).Warn("Reload of handover failed", "error", err)
			return fmt.Errorf("handover saved but reload failed: %w", err)
		}
	}

	vm.mu.Lock()
	vm.handover = handover
	vm.mu.Unlock()
	return nil
}

// SubmitReview rates the rental. It does not change the handover.
func (vm *ViewModel) SubmitReview(ctx context.Context, form ReviewForm) error {
	err := vm.submitReview(ctx, form)
	vm.report(ActionReview, err, "Thank you for your review.")
	return err
}

func (vm *ViewModel) submitReview(ctx context.Context, form ReviewForm) error {
	vm.mu.Lock()
	if vm.reviewing {
		vm.mu.Unlock()
		return domain.ErrActionInFlight
	}
	if err := vm.allowedLocked(ActionReview); err != nil {
		vm.mu.Unlock()
		return err
	}
	vm.reviewing = true
	vm.mu.Unlock()

	defer func() {
		vm.mu.Lock()
		vm.reviewing = false
		vm.mu.Unlock()
	}()

	if err := form.Validate(); err != nil {
		return err
	}
	_, err := vm.deps.API.CreateReview(ctx, domain.ReviewRequest{
		RentalContractID: vm.contractID,
		Rating:           form.Rating,
		Comment:          form.Comment,
	})
	return err
}

// RenderContract fills the contract template from the cached contract.
func (vm *ViewModel) RenderContract(ctx context.Context) (*domain.RenderedDocument, error) {
	doc, err := vm.render(ctx, ActionViewContract, document.TemplateContract, func(c *domain.Contract, _ *domain.VehicleHandover, p Perspective) (document.Fields, error) {
		var lessee *domain.User
		if p == PerspectiveLessee {
			u, err := vm.deps.Session.RequireUser()
			if err != nil {
				return nil, err
			}
			lessee = &u
		}
		return document.NewContractFields(c, lessee, vm.settings.Location), nil
	})
	if err != nil {
		vm.report(ActionViewContract, err, "")
	}
	return doc, err
}

// RenderHandover fills the handover template from the cached handover.
func (vm *ViewModel) RenderHandover(ctx context.Context) (*domain.RenderedDocument, error) {
	doc, err := vm.render(ctx, ActionViewHandover, document.TemplateHandover, func(c *domain.Contract, h *domain.VehicleHandover, _ Perspective) (document.Fields, error) {
		return document.NewHandoverFields(h, c, vm.settings.Location), nil
	})
	if err != nil {
		vm.report(ActionViewHandover, err, "")
	}
	return doc, err
}

type fieldsFunc func(*domain.Contract, *domain.VehicleHandover, Perspective) (document.Fields, error)

func (vm *ViewModel) render(ctx context.Context, a Action, ref document.TemplateRef, build fieldsFunc) (*domain.RenderedDocument, error) {
	vm.mu.Lock()
	if vm.rendering[ref] {
		vm.mu.Unlock()
		return nil, domain.ErrActionInFlight
	}
	if err := vm.allowedLocked(a); err != nil {
		vm.mu.Unlock()
		return nil, err
	}
	vm.rendering[ref] = true
	c, h, p := vm.contract, vm.handover, vm.perspective
	vm.mu.Unlock()

	defer func() {
		vm.mu.Lock()
		delete(vm.rendering, ref)
		vm.mu.Unlock()
	}()

	fields, err := build(c, h, p)
	if err != nil {
		return nil, err
	}
	return vm.deps.Renderer.Render(ctx, ref, fields)
}
