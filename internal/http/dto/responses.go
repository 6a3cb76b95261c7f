package dto

// ErrorResponse is the uniform error envelope: the machine-readable kind
// plus a human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type WalletSummary struct {
	ID      string  `json:"id"`
	Status  string  `json:"status"`
	Address *string `json:"address"`
}

type SignupResponse struct {
	User    any           `json:"user"`
	Session any           `json:"session"`
	Wallet  WalletSummary `json:"wallet"`
}

type LoginResponse struct {
	User    any `json:"user"`
	Session any `json:"session"`
}

type WalletStatusResponse struct {
	Status  string  `json:"status"`
	Address *string `json:"address"`
}

type SendTransactionResponse struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
}

type TransactionReceiptResponse struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	BlockHash       string `json:"blockHash"`
	Status          string `json:"status"`
	GasUsed         uint64 `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
