package lifecycle

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcar-client/internal/domain"
)

func contractWith(status domain.ContractStatus) *domain.Contract {
	return &domain.Contract{ID: "c1", LessorID: "lessor", LesseeID: "lessee", Status: status}
}

func handoverWith(status domain.HandoverStatus, lesseeApproved, lessorApproved bool) *domain.VehicleHandover {
	return &domain.VehicleHandover{
		ID:             "h1",
		Status:         status,
		LesseeApproved: lesseeApproved,
		LessorApproved: lessorApproved,
	}
}

func TestDerive_Lessee(t *testing.T) {
	tests := []struct {
		name     string
		contract *domain.Contract
		handover *domain.VehicleHandover
		state    State
		actions  []Action
	}{
		{"no contract", nil, nil, StateUnknown, nil},
		{"pending", contractWith(domain.ContractStatusPending), nil, StateAwaitingSignature, []Action{ActionSign}},
		{"pending ignores handover", contractWith(domain.ContractStatusPending), handoverWith(domain.HandoverStatusRending, true, true),
			StateAwaitingSignature, []Action{ActionSign}},
		{"signed without handover", contractWith(domain.ContractStatusSigned), nil, StateAwaitingHandover, []Action{ActionViewContract}},
		{"handover created", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusCreated, false, true),
			StateAwaitingHandover, []Action{ActionViewContract, ActionViewHandover, ActionApproveHandover}},
		{"handover approved by lessee", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusCreated, true, true),
			StateAwaitingHandover, []Action{ActionViewContract, ActionViewHandover}},
		{"rending", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusRending, true, true),
			StateInProgress, []Action{ActionViewContract, ActionViewHandover, ActionReturn}},
		{"returning", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusReturning, true, false),
			StateAwaitingReturnReview, []Action{ActionViewContract, ActionViewHandover, ActionReview}},
		{"returned", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusReturned, true, true),
			StateAwaitingReturnReview, []Action{ActionViewContract, ActionViewHandover, ActionReview}},
		{"canceled", contractWith(domain.ContractStatusCanceled), nil, StateCanceled, []Action{ActionViewContract}},
		{"unknown status", contractWith("ARCHIVED"), nil, StateUnknown, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, actions := Derive(tt.contract, tt.handover, PerspectiveLessee)
			assert.Equal(t, tt.state, state)
			if diff := cmp.Diff(tt.actions, actions); diff != "" {
				t.Errorf("actions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDerive_Lessor(t *testing.T) {
	tests := []struct {
		name     string
		contract *domain.Contract
		handover *domain.VehicleHandover
		actions  []Action
	}{
		{"pending", contractWith(domain.ContractStatusPending), nil, []Action{ActionViewContract}},
		{"signed without handover", contractWith(domain.ContractStatusSigned), nil, []Action{ActionViewContract, ActionCreateHandover}},
		{"handover created", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusCreated, false, true),
			[]Action{ActionViewContract, ActionViewHandover}},
		{"rending", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusRending, true, true),
			[]Action{ActionViewContract, ActionViewHandover}},
		{"returning", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusReturning, true, false),
			[]Action{ActionViewContract, ActionViewHandover, ActionApproveReturn}},
		{"returned", contractWith(domain.ContractStatusSigned), handoverWith(domain.HandoverStatusReturned, true, true),
			[]Action{ActionViewContract, ActionViewHandover}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, actions := Derive(tt.contract, tt.handover, PerspectiveLessor)
			if diff := cmp.Diff(tt.actions, actions); diff != "" {
				t.Errorf("actions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDerive_SignNeverOfferedOnceSigned(t *testing.T) {
	statuses := []domain.HandoverStatus{"", domain.HandoverStatusCreated, domain.HandoverStatusRending,
		domain.HandoverStatusReturning, domain.HandoverStatusReturned}
	for _, s := range statuses {
		var h *domain.VehicleHandover
		if s != "" {
			h = handoverWith(s, false, false)
		}
		for _, p := range []Perspective{PerspectiveLessee, PerspectiveLessor} {
			_, actions := Derive(contractWith(domain.ContractStatusSigned), h, p)
			assert.NotContains(t, actions, ActionSign, "status %q perspective %s", s, p)
		}
	}
}

func TestPerspectiveFor(t *testing.T) {
	c := contractWith(domain.ContractStatusSigned)
	assert.Equal(t, PerspectiveLessor, PerspectiveFor(c, "lessor"))
	assert.Equal(t, PerspectiveLessee, PerspectiveFor(c, "lessee"))
	assert.Equal(t, PerspectiveLessee, PerspectiveFor(c, ""))
	assert.Equal(t, PerspectiveLessee, PerspectiveFor(nil, "lessor"))
}

func TestReturnForm_Validate(t *testing.T) {
	pickup := &domain.VehicleHandover{
		HandoverDate:    domain.NewTimestamp(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)),
		OdometerReading: 12000,
	}
	valid := ReturnForm{
		ReturnDate:              time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		ReturnHour:              9,
		ConditionMatchesInitial: true,
		OdometerReading:         12500,
		FuelLevel:               80,
	}
	require.NoError(t, valid.Validate(pickup))

	bad := valid
	bad.ReturnDate = time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	bad.ReturnHour = 24
	bad.OdometerReading = 11000
	bad.FuelLevel = 101
	bad.ConditionMatchesInitial = false

	err := bad.Validate(pickup)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidForm)

	var fe *domain.FormError
	require.ErrorAs(t, err, &fe)
	assert.Len(t, fe.Fields, 5)
	assert.Contains(t, fe.Fields, "return_date")
	assert.Contains(t, fe.Fields, "vehicle_condition")
}

func TestHandoverForm_Validate(t *testing.T) {
	err := HandoverForm{HandoverHour: -1, FuelLevel: 50, InitialConditionNormal: true}.Validate()
	var fe *domain.FormError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Fields, "handover_date")
	assert.Contains(t, fe.Fields, "handover_hour")

	ok := HandoverForm{HandoverDate: time.Now(), HandoverHour: 8, FuelLevel: 100, InitialConditionNormal: true}
	assert.NoError(t, ok.Validate())
}

func TestReviewForm_Validate(t *testing.T) {
	assert.NoError(t, ReviewForm{Rating: 5, Comment: "great car"}.Validate())
	assert.ErrorIs(t, ReviewForm{Rating: 0}.Validate(), domain.ErrInvalidForm)
	assert.ErrorIs(t, ReviewForm{Rating: 6}.Validate(), domain.ErrInvalidForm)

	long := make([]rune, MaxCommentLength+1)
	for i := range long {
		long[i] = 'ư'
	}
	assert.ErrorIs(t, ReviewForm{Rating: 4, Comment: string(long)}.Validate(), domain.ErrInvalidForm)
	assert.NoError(t, ReviewForm{Rating: 4, Comment: string(long[:MaxCommentLength])}.Validate())
}
