package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

type AverageRatingResponse struct {
	PropertyID    string `json:"property_id"`
	AverageRating int    `json:"average_rating"`
	ReviewCount   int    `json:"review_count"`
}
