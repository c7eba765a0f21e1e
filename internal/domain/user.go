package domain

type CarLicense struct {
	ID              string `json:"id"`
	FullName        string `json:"full_name"`
	DOB             string `json:"dob"`
	LicenseImageURL string `json:"license_image_url"`
}

type CitizenIdentification struct {
	Number           string `json:"citizen_identification_number"`
	IssuedDate       string `json:"issued_date"`
	IssuedLocation   string `json:"issued_location"`
	PermanentAddress string `json:"permanent_address"`
	ContactAddress   string `json:"contact_address"`
	ImageURL         string `json:"citizen_identification_image"`
}

// User is the cached profile of the signed-in account.
type User struct {
	ID                    string                 `json:"id"`
	DisplayName           string                 `json:"display_name"`
	Email                 string                 `json:"email"`
	ImageURL              string                 `json:"image_url"`
	PhoneNumber           string                 `json:"phone_number,omitempty"`
	CarLicense            *CarLicense            `json:"car_license,omitempty"`
	CitizenIdentification *CitizenIdentification `json:"citizen_identification,omitempty"`
}
