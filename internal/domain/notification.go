package domain

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	TargetID  string    `json:"target_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt Timestamp `json:"created_at"`
}

type Review struct {
	ID               string    `json:"id"`
	RentalContractID string    `json:"rental_contract_id"`
	CarID            string    `json:"car_id"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	ReviewType       string    `json:"review_type"`
	CreatedAt        Timestamp `json:"created_at"`
}

type ReviewRequest struct {
	RentalContractID string `json:"rental_contract_id"`
	Rating           int    `json:"rating"`
	Comment          string `json:"comment"`
}
