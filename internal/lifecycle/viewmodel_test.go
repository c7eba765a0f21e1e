package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vcar-client/internal/document"
	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
	"vcar-client/internal/wallet"
)

var (
	account = common.HexToAddress("0x1111111111111111111111111111111111111111")
	owner   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	lessee  = domain.User{ID: "lessee", DisplayName: "Nguyen Van A"}
	lessor  = domain.User{ID: "lessor", DisplayName: "Tran Thi B"}
)

var walletSig = &domain.WalletSignature{
	Account:   account.Hex(),
	Message:   "VCar identity confirmation",
	Signature: "0xsig",
}

type fixture struct {
	api      *MockRentalAPI
	wallet   *MockWallet
	renderer *MockRenderer
	notices  *recordingNotifier
	vm       *ViewModel
}

func newFixture(t *testing.T, user domain.User) *fixture {
	t.Helper()
	f := &fixture{
		api:      new(MockRentalAPI),
		wallet:   new(MockWallet),
		renderer: new(MockRenderer),
		notices:  &recordingNotifier{},
	}
	f.vm = New("c1", Deps{
		API:      f.api,
		Wallet:   f.wallet,
		Renderer: f.renderer,
		Session:  stubSession{user: user},
		Notifier: f.notices,
	}, Settings{
		OwnerAddress: owner,
		SignFee:      decimal.RequireFromString("0.001"),
		MinBalance:   decimal.RequireFromString("0.05"),
		Location:     time.UTC,
	})
	return f
}

func (f *fixture) load(t *testing.T, c *domain.Contract, h *domain.VehicleHandover) {
	t.Helper()
	f.api.On("GetContractByID", mock.Anything, "c1").Return(c, nil).Once()
	if c.IsSigned() {
		f.api.On("GetVehicleHandoverByContractID", mock.Anything, "c1").Return(h, nil).Once()
	}
	require.NoError(t, f.vm.Load(context.Background()))
}

func (f *fixture) expectSignPipeline() {
	f.wallet.On("Connect", mock.Anything).Return(account, nil)
	f.wallet.On("SignMessage", mock.Anything, "lessee").Return(walletSig, nil)
	f.wallet.On("GetBalance", mock.Anything, account).Return(decimal.RequireFromString("0.5"), nil)
}

func TestViewModel_Load(t *testing.T) {
	t.Run("pending contract skips handover lookup", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)

		assert.Equal(t, StateAwaitingSignature, f.vm.State())
		assert.Equal(t, []Action{ActionSign}, f.vm.Actions())
		f.api.AssertNotCalled(t, "GetVehicleHandoverByContractID", mock.Anything, mock.Anything)
	})

	t.Run("lessor perspective", func(t *testing.T) {
		f := newFixture(t, lessor)
		f.load(t, contractWith(domain.ContractStatusSigned), nil)

		assert.Equal(t, PerspectiveLessor, f.vm.Perspective())
		assert.Equal(t, []Action{ActionViewContract, ActionCreateHandover}, f.vm.Actions())
	})

	t.Run("failure keeps previous state", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)
		f.api.On("GetContractByID", mock.Anything, "c1").Return(nil, domain.ErrAuthExpired).Once()

		err := f.vm.Load(context.Background())
		assert.ErrorIs(t, err, domain.ErrAuthExpired)
		assert.Equal(t, StateAwaitingSignature, f.vm.State())
	})

	t.Run("requires session", func(t *testing.T) {
		vm := New("c1", Deps{Session: stubSession{err: domain.ErrAuthExpired}}, Settings{})
		assert.ErrorIs(t, vm.Load(context.Background()), domain.ErrAuthExpired)
	})
}

func TestViewModel_Sign(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)
		f.expectSignPipeline()
		f.api.On("UploadSignature", mock.Anything, "c1", "sig.png", []byte("png")).Return("https://cdn/sig.png", nil)
		f.wallet.On("SendPayment", mock.Anything, owner, decimal.RequireFromString("0.001")).
			Return(wallet.PaymentResult{Success: true, TxHash: "0xtx"}, nil)
		f.api.On("SignContract", mock.Anything, "c1", walletSig.Payload("https://cdn/sig.png")).Return("https://pay/1", nil)
		f.api.On("GetContractByID", mock.Anything, "c1").Return(contractWith(domain.ContractStatusSigned), nil).Once()
		f.api.On("GetVehicleHandoverByContractID", mock.Anything, "c1").Return(nil, nil).Once()

		res, err := f.vm.Sign(context.Background(), &SignatureImage{Filename: "sig.png", Data: []byte("png")})
		require.NoError(t, err)
		assert.Equal(t, "https://pay/1", res.PaymentURL)
		assert.Equal(t, "0xtx", res.TxHash)
		assert.Equal(t, StateAwaitingHandover, f.vm.State())
		assert.Equal(t, []Action{ActionViewContract}, f.vm.Actions())
		assert.True(t, f.notices.last().OK)
		assert.False(t, f.vm.Busy())
	})

	t.Run("insufficient balance stops before payment", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)
		f.wallet.On("Connect", mock.Anything).Return(account, nil)
		f.wallet.On("SignMessage", mock.Anything, "lessee").Return(walletSig, nil)
		f.wallet.On("GetBalance", mock.Anything, account).Return(decimal.RequireFromString("0.049999999999999999"), nil)

		_, err := f.vm.Sign(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.Equal(t, "BALANCE_NOT_ENOUGH", f.notices.last().Key)
		f.wallet.AssertNotCalled(t, "SendPayment", mock.Anything, mock.Anything, mock.Anything)
		f.api.AssertNotCalled(t, "SignContract", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, StateAwaitingSignature, f.vm.State())
	})

	t.Run("failed payment never submits signature", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)
		f.expectSignPipeline()
		f.wallet.On("SendPayment", mock.Anything, owner, mock.Anything).
			Return(wallet.PaymentResult{ReasonCode: wallet.ReasonReverted}, nil)

		_, err := f.vm.Sign(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrPaymentFailed)
		f.api.AssertNotCalled(t, "SignContract", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, StateAwaitingSignature, f.vm.State())
		assert.Equal(t, []Action{ActionSign}, f.vm.Actions())
	})

	t.Run("rejected signature", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)
		f.wallet.On("Connect", mock.Anything).Return(account, nil)
		f.wallet.On("SignMessage", mock.Anything, "lessee").Return(nil, domain.ErrSignatureRejected)

		_, err := f.vm.Sign(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrSignatureRejected)
		f.wallet.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
	})

	t.Run("balance query failure", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)
		f.wallet.On("Connect", mock.Anything).Return(account, nil)
		f.wallet.On("SignMessage", mock.Anything, "lessee").Return(walletSig, nil)
		f.wallet.On("GetBalance", mock.Anything, account).Return(decimal.Zero, errors.New("rpc down"))

		_, err := f.vm.Sign(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrBalanceQuery)
		assert.Equal(t, "BALANCE_QUERY_FAILED", f.notices.last().Key)
		f.wallet.AssertNotCalled(t, "SendPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("upload failure", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)
		f.wallet.On("Connect", mock.Anything).Return(account, nil)
		f.wallet.On("SignMessage", mock.Anything, "lessee").Return(walletSig, nil)
		f.api.On("UploadSignature", mock.Anything, "c1", "sig.png", mock.Anything).Return("", errors.New("413"))

		_, err := f.vm.Sign(context.Background(), &SignatureImage{Filename: "sig.png", Data: []byte("png")})
		assert.ErrorIs(t, err, domain.ErrSignatureUpload)
		f.wallet.AssertNotCalled(t, "SendPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reload failure marks contract signed", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusPending), nil)
		f.expectSignPipeline()
		f.wallet.On("SendPayment", mock.Anything, owner, mock.Anything).
			Return(wallet.PaymentResult{Success: true, TxHash: "0xtx"}, nil)
		f.api.On("SignContract", mock.Anything, "c1", mock.Anything).Return("", nil)
		f.api.On("GetContractByID", mock.Anything, "c1").Return(nil, errors.New("timeout")).Once()

		_, err := f.vm.Sign(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingHandover, f.vm.State())
	})

	t.Run("not offered once signed", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusSigned), nil)

		_, err := f.vm.Sign(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrActionNotAllowed)
		f.wallet.AssertNotCalled(t, "Connect", mock.Anything)
	})
}

func TestViewModel_SignIsSingleFlight(t *testing.T) {
	f := newFixture(t, lessee)
	f.load(t, contractWith(domain.ContractStatusPending), nil)
	f.expectSignPipeline()
	f.wallet.On("SendPayment", mock.Anything, owner, mock.Anything).
		Return(wallet.PaymentResult{Success: true, TxHash: "0xtx"}, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.On("SignContract", mock.Anything, "c1", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return("", nil).Once()
	f.api.On("GetContractByID", mock.Anything, "c1").Return(contractWith(domain.ContractStatusSigned), nil).Once()
	f.api.On("GetVehicleHandoverByContractID", mock.Anything, "c1").Return(nil, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = f.vm.Sign(context.Background(), nil)
	}()

	<-entered
	assert.True(t, f.vm.Busy())
	assert.Empty(t, f.vm.Actions())

	_, err := f.vm.Sign(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrActionInFlight)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	f.api.AssertNumberOfCalls(t, "SignContract", 1)
}

func TestViewModel_HandoverSequence(t *testing.T) {
	pickup := &domain.VehicleHandover{
		ID:              "h1",
		Status:          domain.HandoverStatusCreated,
		LessorApproved:  true,
		HandoverDate:    domain.NewTimestamp(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)),
		OdometerReading: 12000,
	}
	f := newFixture(t, lessee)
	f.load(t, contractWith(domain.ContractStatusSigned), pickup)
	f.wallet.On("SignMessage", mock.Anything, "lessee").Return(walletSig, nil)

	want := []Action{ActionViewContract, ActionViewHandover, ActionApproveHandover}
	if diff := cmp.Diff(want, f.vm.Actions()); diff != "" {
		t.Fatalf("created actions (-want +got):\n%s", diff)
	}

	rending := *pickup
	rending.Status = domain.HandoverStatusRending
	rending.LesseeApproved = true
	f.api.On("LesseeApproveHandover", mock.Anything, walletSig.Payload(""), "h1").Return(&rending, nil)
	require.NoError(t, f.vm.ApproveHandover(context.Background(), nil))
	assert.Equal(t, StateInProgress, f.vm.State())
	assert.Equal(t, []Action{ActionViewContract, ActionViewHandover, ActionReturn}, f.vm.Actions())

	form := ReturnForm{
		ReturnDate:              time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		ReturnHour:              17,
		ConditionMatchesInitial: true,
		OdometerReading:         12480,
		FuelLevel:               60,
	}
	returned := rending
	returned.Status = domain.HandoverStatusReturned
	f.api.On("ReturnVehicle", mock.Anything, "h1", mock.MatchedBy(func(r domain.ReturnRequest) bool {
		return r.ReturnHour == "17" && r.OdometerReading == 12480 && r.DigitalSignature.Signature == "0xsig"
	})).Return(&returned, nil)
	require.NoError(t, f.vm.SubmitReturn(context.Background(), form))
	assert.Equal(t, StateAwaitingReturnReview, f.vm.State())
	assert.Equal(t, []Action{ActionViewContract, ActionViewHandover, ActionReview}, f.vm.Actions())

	f.api.On("CreateReview", mock.Anything, domain.ReviewRequest{RentalContractID: "c1", Rating: 5, Comment: "ok"}).
		Return(&domain.Review{}, nil)
	require.NoError(t, f.vm.SubmitReview(context.Background(), ReviewForm{Rating: 5, Comment: "ok"}))
	assert.Equal(t, StateAwaitingReturnReview, f.vm.State())
}

func TestViewModel_SubmitReturn_InvalidForm(t *testing.T) {
	f := newFixture(t, lessee)
	f.load(t, contractWith(domain.ContractStatusSigned), &domain.VehicleHandover{
		ID: "h1", Status: domain.HandoverStatusRending, OdometerReading: 500,
	})

	err := f.vm.SubmitReturn(context.Background(), ReturnForm{ReturnHour: 30, OdometerReading: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidForm)
	assert.Equal(t, "INVALID_FORM", f.notices.last().Key)
	f.wallet.AssertNotCalled(t, "SignMessage", mock.Anything, mock.Anything)
	assert.Equal(t, StateInProgress, f.vm.State())
	assert.False(t, f.vm.Busy())
}

func TestViewModel_ApproveHandover_FailureKeepsState(t *testing.T) {
	f := newFixture(t, lessee)
	f.load(t, contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusCreated, false, true))
	f.wallet.On("SignMessage", mock.Anything, "lessee").Return(walletSig, nil)
	f.api.On("LesseeApproveHandover", mock.Anything, mock.Anything, "h1").
		Return(nil, &domain.ServerError{StatusCode: 409, Message: "already approved"})

	err := f.vm.ApproveHandover(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrServerRejected)
	_, h := f.vm.Snapshot()
	assert.Equal(t, domain.HandoverStatusCreated, h.Status)
	assert.False(t, f.notices.last().OK)
}

func TestViewModel_ApproveHandover_ReloadFailureIsReported(t *testing.T) {
	f := newFixture(t, lessee)
	f.load(t, contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusCreated, false, true))
	f.wallet.On("SignMessage", mock.Anything, "lessee").Return(walletSig, nil)
	f.api.On("LesseeApproveHandover", mock.Anything, mock.Anything, "h1").Return(&domain.VehicleHandover{}, nil)
	f.api.On("GetVehicleHandoverByContractID", mock.Anything, "c1").Return(nil, &domain.ServerError{StatusCode: 502, Message: "bad gateway"}).Once()

	err := f.vm.ApproveHandover(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrServerRejected)
	assert.False(t, f.notices.last().OK)

	_, h := f.vm.Snapshot()
	assert.Equal(t, domain.HandoverStatusCreated, h.Status)
	assert.Contains(t, f.vm.Actions(), ActionApproveHandover)
	assert.False(t, f.vm.Busy())
}

func TestViewModel_SignFailureLogsExit(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWithWriter("debug", "json", &buf)
	t.Cleanup(func() { logger.Initialize("info", "text") })

	f := newFixture(t, lessee)
	f.load(t, contractWith(domain.ContractStatusPending), nil)
	f.wallet.On("Connect", mock.Anything).Return(common.Address{}, domain.ErrWalletUnavailable)

	_, err := f.vm.Sign(context.Background(), nil)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "Method exited with error")
	assert.Contains(t, out, `"method":"ViewModel.Sign"`)
}

func TestViewModel_LessorFlow(t *testing.T) {
	f := newFixture(t, lessor)
	f.load(t, contractWith(domain.ContractStatusSigned), nil)
	f.wallet.On("SignMessage", mock.Anything, "lessor").Return(walletSig, nil)

	created := handoverWith(domain.HandoverStatusCreated, false, true)
	f.api.On("CreateVehicleHandover", mock.Anything, mock.MatchedBy(func(r domain.HandoverRequest) bool {
		return r.RentalContractID == "c1" && r.HandoverHour == "8"
	})).Return(created, nil)

	err := f.vm.CreateHandover(context.Background(), HandoverForm{
		HandoverDate:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		HandoverHour:           8,
		InitialConditionNormal: true,
		OdometerReading:        12000,
		FuelLevel:              100,
	})
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionViewContract, ActionViewHandover}, f.vm.Actions())

	_, err = f.vm.Sign(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrActionNotAllowed)
}

func TestViewModel_ApproveReturn(t *testing.T) {
	f := newFixture(t, lessor)
	f.load(t, contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusReturning, true, false))
	f.wallet.On("SignMessage", mock.Anything, "lessor").Return(walletSig, nil)
	f.api.On("LessorApproveReturn", mock.Anything, walletSig.Payload(""), "h1").Return(nil, nil)
	f.api.On("GetVehicleHandoverByContractID", mock.Anything, "c1").
		Return(handoverWith(domain.HandoverStatusReturned, true, true), nil).Once()

	require.NoError(t, f.vm.ApproveReturn(context.Background()))
	_, h := f.vm.Snapshot()
	assert.Equal(t, domain.HandoverStatusReturned, h.Status)
	assert.Equal(t, []Action{ActionViewContract, ActionViewHandover}, f.vm.Actions())
}

func TestViewModel_Render(t *testing.T) {
	t.Run("contract", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusSigned), nil)
		f.renderer.On("Render", mock.Anything, document.TemplateContract, mock.Anything).
			Return(&domain.RenderedDocument{Filename: "Hop-dong-thue-xe.docx", Data: []byte("x")}, nil)

		doc, err := f.vm.RenderContract(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Hop-dong-thue-xe.docx", doc.Filename)
	})

	t.Run("handover not offered without record", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusSigned), nil)

		_, err := f.vm.RenderHandover(context.Background())
		assert.ErrorIs(t, err, domain.ErrActionNotAllowed)
		f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("template failure is reported", func(t *testing.T) {
		f := newFixture(t, lessee)
		f.load(t, contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusRending, true, true))
		f.renderer.On("Render", mock.Anything, document.TemplateHandover, mock.Anything).
			Return(nil, domain.ErrTemplateFetchFailed)

		_, err := f.vm.RenderHandover(context.Background())
		assert.ErrorIs(t, err, domain.ErrTemplateFetchFailed)
		assert.Equal(t, "TEMPLATE_FETCH_FAILED", f.notices.last().Key)
	})
}
