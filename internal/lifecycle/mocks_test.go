package lifecycle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"vcar-client/internal/document"
	"vcar-client/internal/domain"
	"vcar-client/internal/wallet"
)

// MockRentalAPI
type MockRentalAPI struct {
	mock.Mock
}

func (m *MockRentalAPI) GetContractByID(ctx context.Context, id string) (*domain.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}
func (m *MockRentalAPI) GetVehicleHandoverByContractID(ctx context.Context, contractID string) (*domain.VehicleHandover, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleHandover), args.Error(1)
}
func (m *MockRentalAPI) SignContract(ctx context.Context, id string, payload domain.SignaturePayload) (string, error) {
	args := m.Called(ctx, id, payload)
	return args.String(0), args.Error(1)
}
func (m *MockRentalAPI) UploadSignature(ctx context.Context, contractID, filename string, image []byte) (string, error) {
	args := m.Called(ctx, contractID, filename, image)
	return args.String(0), args.Error(1)
}
func (m *MockRentalAPI) CreateVehicleHandover(ctx context.Context, req domain.HandoverRequest) (*domain.VehicleHandover, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleHandover), args.Error(1)
}
func (m *MockRentalAPI) LesseeApproveHandover(ctx context.Context, payload domain.SignaturePayload, handoverID string) (*domain.VehicleHandover, error) {
	args := m.Called(ctx, payload, handoverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleHandover), args.Error(1)
}
func (m *MockRentalAPI) ReturnVehicle(ctx context.Context, handoverID string, req domain.ReturnRequest) (*domain.VehicleHandover, error) {
	args := m.Called(ctx, handoverID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleHandover), args.Error(1)
}
func (m *MockRentalAPI) LessorApproveReturn(ctx context.Context, payload domain.SignaturePayload, handoverID string) (*domain.VehicleHandover, error) {
	args := m.Called(ctx, payload, handoverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleHandover), args.Error(1)
}
func (m *MockRentalAPI) CreateReview(ctx context.Context, req domain.ReviewRequest) (*domain.Review, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

// MockWallet
type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) Connect(ctx context.Context) (common.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).(common.Address), args.Error(1)
}
func (m *MockWallet) SignMessage(ctx context.Context, userID string) (*domain.WalletSignature, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WalletSignature), args.Error(1)
}
func (m *MockWallet) GetBalance(ctx context.Context, addr common.Address) (decimal.Decimal, error) {
	args := m.Called(ctx, addr)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockWallet) SendPayment(ctx context.Context, to common.Address, amount decimal.Decimal) (wallet.PaymentResult, error) {
	args := m.Called(ctx, to, amount)
	return args.Get(0).(wallet.PaymentResult), args.Error(1)
}

// MockRenderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, ref document.TemplateRef, fields document.Fields) (*domain.RenderedDocument, error) {
	args := m.Called(ctx, ref, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RenderedDocument), args.Error(1)
}

type stubSession struct {
	user domain.User
	err  error
}

func (s stubSession) RequireUser() (domain.User, error) {
	return s.user, s.err
}

type recordingNotifier struct {
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) {
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) last() Notice {
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}
