package dto

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendTransactionRequest: amount is a decimal ether string; the optional
// fee overrides are decimal wei strings.
type SendTransactionRequest struct {
	To                   string  `json:"to"`
	Amount               string  `json:"amount"`
	GasLimit             *uint64 `json:"gasLimit,omitempty"`
	MaxFeePerGas         *string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *string `json:"maxPriorityFeePerGas,omitempty"`
}
