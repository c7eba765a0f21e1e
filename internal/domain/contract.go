package domain

type ContractStatus string

const (
	ContractStatusPending  ContractStatus = "PENDING"
	ContractStatusSigned   ContractStatus = "SIGNED"
	ContractStatusCanceled ContractStatus = "CANCELED"
)

// Contract is a single rental agreement as returned by the rental API.
// Pricing fields are in VND.
type Contract struct {
	ID       string         `json:"id"`
	CarID    string         `json:"car_id"`
	LessorID string         `json:"lessor_id"`
	LesseeID string         `json:"lessee_id"`
	Status   ContractStatus `json:"rental_status"`

	CreatedAt       Timestamp `json:"created_at"`
	UpdatedAt       Timestamp `json:"updated_at"`
	RentalStartDate Timestamp `json:"rental_start_date"`
	RentalEndDate   Timestamp `json:"rental_end_date"`

	HandOverLocation string `json:"vehicle_hand_over_location"`

	// Lessor (party A) snapshot
	LessorName           string `json:"vehicle_owner_name"`
	LessorIdentityNumber string `json:"lessor_identity_number"`
	LessorContactAddress string `json:"lessor_contact_address"`
	LessorPhoneNumber    string `json:"lessor_phone_number"`

	// Lessee (party B) snapshot
	LesseeName string `json:"lessee_name"`

	// Vehicle snapshot
	VehicleName                 string `json:"vehicle_name"`
	VehicleBrand                string `json:"vehicle_brand"`
	VehicleColor                string `json:"vehicle_color"`
	VehicleSeat                 int    `json:"vehicle_seat"`
	VehicleLicensePlate         string `json:"vehicle_license_plate"`
	VehicleManufacturingYear    int    `json:"vehicle_manufacturing_year"`
	VehicleRegistrationNumber   string `json:"vehicle_registration_number"`
	VehicleRegistrationDate     string `json:"vehicle_registration_date"`
	VehicleRegistrationLocation string `json:"vehicle_registration_location"`

	// Pricing terms
	RentalPricePerDay  int64 `json:"rental_price_per_day"`
	MileageLimitPerDay int64 `json:"mileage_limit_per_day"`
	ExtraMileageCharge int64 `json:"extra_mileage_charge"`
	ExtraHourlyCharge  int64 `json:"extra_hourly_charge"`
	TotalRentalValue   int64 `json:"total_rental_value"`
}

func (c *Contract) IsSigned() bool {
	return c != nil && c.Status == ContractStatusSigned
}

// IsParty reports whether userID is the lessor or lessee of the contract.
func (c *Contract) IsParty(userID string) bool {
	return userID != "" && (c.LessorID == userID || c.LesseeID == userID)
}

// ContractListParams are the pagination parameters of the contract listings.
type ContractListParams struct {
	Page           int
	Size           int
	SortDescending bool
}

// PageMeta mirrors the meta block of paged API responses.
type PageMeta struct {
	Page      int   `json:"page"`
	Size      int   `json:"size"`
	ItemCount int64 `json:"item_count"`
	PageCount int   `json:"page_count"`
}
