package lifecycle

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"vcar-client/internal/domain"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

// ReturnForm is what the lessee fills in when handing the vehicle back.
type ReturnForm struct {
	ReturnDate              time.Time
	ReturnHour              int
	ConditionMatchesInitial bool
	VehicleCondition        string
	Damages                 []string
	OdometerReading         int
	FuelLevel               int
	PersonalItems           string
}

// Validate checks the form against the pickup record h.
func (f ReturnForm) Validate(h *domain.VehicleHandover) error {
	fields := map[string]string{}
	if f.ReturnDate.IsZero() {
		fields["return_date"] = "required"
	} else if h != nil && !h.HandoverDate.IsZero() && f.ReturnDate.Before(h.HandoverDate.Time) {
		fields["return_date"] = "must not be before the handover date"
	}
	if f.ReturnHour < 0 || f.ReturnHour > 23 {
		fields["return_hour"] = "must be between 0 and 23"
	}
	if f.OdometerReading < 0 {
		fields["odometer_reading"] = "must not be negative"
	} else if h != nil && f.OdometerReading < h.OdometerReading {
		fields["odometer_reading"] = "must be at least " + strconv.Itoa(h.OdometerReading)
	}
	if f.FuelLevel < 0 || f.FuelLevel > 100 {
		fields["fuel_level"] = "must be between 0 and 100"
	}
	if !f.ConditionMatchesInitial && strings.TrimSpace(f.VehicleCondition) == "" {
		fields["vehicle_condition"] = "required when the condition differs from pickup"
	}
	if len(fields) > 0 {
		return &domain.FormError{Fields: fields}
	}
	return nil
}

func (f ReturnForm) request(sig domain.SignaturePayload) domain.ReturnRequest {
	return domain.ReturnRequest{
		ReturnDate:              domain.NewTimestamp(f.ReturnDate),
		ReturnHour:              strconv.Itoa(f.ReturnHour),
		ConditionMatchesInitial: f.ConditionMatchesInitial,
		VehicleCondition:        f.VehicleCondition,
		Damages:                 f.Damages,
		OdometerReading:         f.OdometerReading,
		FuelLevel:               f.FuelLevel,
		PersonalItems:           f.PersonalItems,
		DigitalSignature:        sig,
	}
}

// HandoverForm is the lessor's pickup record.
type HandoverForm struct {
	HandoverDate           time.Time
	HandoverHour           int
	InitialConditionNormal bool
	VehicleCondition       string
	Damages                []string
	OdometerReading        int
	FuelLevel              int
	PersonalItems          string
	Collateral             string
}

func (f HandoverForm) Validate() error {
	fields := map[string]string{}
	if f.HandoverDate.IsZero() {
		fields["handover_date"] = "required"
	}
	if f.HandoverHour < 0 || f.HandoverHour > 23 {
		fields["handover_hour"] = "must be between 0 and 23"
	}
	if f.OdometerReading < 0 {
		fields["odometer_reading"] = "must not be negative"
	}
	if f.FuelLevel < 0 || f.FuelLevel > 100 {
		fields["fuel_level"] = "must be between 0 and 100"
	}
	if !f.InitialConditionNormal && strings.TrimSpace(f.VehicleCondition) == "" {
		fields["vehicle_condition"] = "required when the vehicle is not in normal condition"
	}
	if len(fields) > 0 {
		return &domain.FormError{Fields: fields}
	}
	return nil
}

func (f HandoverForm) request(contractID string, sig domain.SignaturePayload) domain.HandoverRequest {
	return domain.HandoverRequest{
		RentalContractID:       contractID,
		HandoverDate:           domain.NewTimestamp(f.HandoverDate),
		HandoverHour:           strconv.Itoa(f.HandoverHour),
		InitialConditionNormal: f.InitialConditionNormal,
		VehicleCondition:       f.VehicleCondition,
		Damages:                f.Damages,
		OdometerReading:        f.OdometerReading,
		FuelLevel:              f.FuelLevel,
		PersonalItems:          f.PersonalItems,
		Collateral:             f.Collateral,
		DigitalSignature:       sig,
	}
}

type ReviewForm struct {
	Rating  int
	Comment string
}

func (f ReviewForm) Validate() error {
	fields := map[string]string{}
	if f.Rating < MinRating || f.Rating > MaxRating {
		fields["rating"] = "must be between 1 and 5"
	}
	if utf8.RuneCountInString(f.Comment) > MaxCommentLength {
		fields["comment"] = "must be at most 1000 characters"
	}
	if len(fields) > 0 {
		return &domain.FormError{Fields: fields}
	}
	return nil
}
