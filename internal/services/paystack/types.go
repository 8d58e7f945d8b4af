package paystack

// ResolvedAccount is the provider's answer to a bank account lookup.
type ResolvedAccount struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

// Bank is one entry of the provider's bank list.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type apiResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

type resolveResponse struct {
	apiResponse
	Data struct {
		AccountName   string `json:"account_name"`
		AccountNumber string `json:"account_number"`
	} `json:"data"`
}

type recipientResponse struct {
	apiResponse
	Data struct {
		RecipientCode string `json:"recipient_code"`
	} `json:"data"`
}

type transferResponse struct {
	apiResponse
	Data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

type bankListResponse struct {
	apiResponse
	Data []Bank `json:"data"`
}
