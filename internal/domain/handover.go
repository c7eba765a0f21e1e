package domain

type HandoverStatus string

const (
	HandoverStatusCreated HandoverStatus = "CREATED"
	// HandoverStatusRending is the server's spelling for "rented / in progress".
	HandoverStatusRending   HandoverStatus = "RENDING"
	HandoverStatusReturning HandoverStatus = "RETURNING"
	HandoverStatusReturned  HandoverStatus = "RETURNED"
)

// VehicleHandover records the physical vehicle exchange for a signed contract:
// the pickup leg and, once submitted, the return leg.
type VehicleHandover struct {
	ID               string         `json:"id"`
	RentalContractID string         `json:"rental_contract_id"`
	LessorID         string         `json:"lessor_id"`
	LesseeID         string         `json:"lessee_id"`
	LessorName       string         `json:"lessor_name"`
	LesseeName       string         `json:"lessee_name"`
	Status           HandoverStatus `json:"status"`
	LesseeApproved   bool           `json:"lessee_approved"`
	LessorApproved   bool           `json:"lessor_approved"`
	Location         string         `json:"location"`

	CarBrand             string `json:"car_brand"`
	CarName              string `json:"car_name"`
	CarColor             string `json:"car_color"`
	CarManufacturingYear int    `json:"car_manufacturing_year"`
	CarLicensePlate      string `json:"car_license_plate"`
	CarSeat              int    `json:"car_seat"`

	HandoverDate           Timestamp `json:"handover_date"`
	HandoverHour           string    `json:"handover_hour"`
	InitialConditionNormal bool      `json:"initial_condition_normal"`
	VehicleCondition       string    `json:"vehicle_condition"`
	Damages                []string  `json:"damages"`
	OdometerReading        int       `json:"odometer_reading"`
	FuelLevel              int       `json:"fuel_level"`
	PersonalItems          string    `json:"personal_items"`
	Collateral             string    `json:"collateral"`
	LessorSignature        string    `json:"lessor_signature"`
	LesseeSignature        string    `json:"lessee_signature"`

	ReturnDate              Timestamp `json:"return_date"`
	ReturnHour              string    `json:"return_hour"`
	ConditionMatchesInitial bool      `json:"condition_matches_initial"`
	ReturnVehicleCondition  string    `json:"return_vehicle_condition"`
	ReturnDamages           []string  `json:"return_damages"`
	ReturnOdometerReading   int       `json:"return_odometer_reading"`
	ReturnFuelLevel         int       `json:"return_fuel_level"`
	ReturnPersonalItems     string    `json:"return_personal_items"`
	ReturnLesseeSignature   string    `json:"return_lessee_signature"`
	ReturnLessorSignature   string    `json:"return_lessor_signature"`
}

// HandoverRequest is the lessor's pickup record for a signed contract.
type HandoverRequest struct {
	RentalContractID       string           `json:"rental_contract_id"`
	HandoverDate           Timestamp        `json:"handover_date"`
	HandoverHour           string           `json:"handover_hour"`
	InitialConditionNormal bool             `json:"initial_condition_normal"`
	VehicleCondition       string           `json:"vehicle_condition,omitempty"`
	Damages                []string         `json:"damages,omitempty"`
	OdometerReading        int              `json:"odometer_reading"`
	FuelLevel              int              `json:"fuel_level"`
	PersonalItems          string           `json:"personal_items,omitempty"`
	Collateral             string           `json:"collateral,omitempty"`
	DigitalSignature       SignaturePayload `json:"digital_signature"`
}

// ReturnRequest is the lessee's return record.
type ReturnRequest struct {
	ReturnDate              Timestamp        `json:"return_date"`
	ReturnHour              string           `json:"return_hour"`
	ConditionMatchesInitial bool             `json:"condition_matches_initial"`
	VehicleCondition        string           `json:"vehicle_condition,omitempty"`
	Damages                 []string         `json:"damages,omitempty"`
	OdometerReading         int              `json:"odometer_reading"`
	FuelLevel               int              `json:"fuel_level"`
	PersonalItems           string           `json:"personal_items,omitempty"`
	DigitalSignature        SignaturePayload `json:"digital_signature"`
}
