package settlement

// eventKind is the closed set of provider callback kinds the reconciler
// understands. Anything else maps to eventUnknown and is acknowledged
// without effect, so provider additions never break the endpoint.
type eventKind int

const (
	eventUnknown eventKind = iota
	eventChargeSuccess
	eventTransferSuccess
	eventTransferFailed
	eventTransferReversed
)

func kindOf(event string) eventKind {
	switch event {
	case "charge.success":
		return eventChargeSuccess
	case "transfer.success":
		return eventTransferSuccess
	case "transfer.failed":
		return eventTransferFailed
	case "transfer.reversed":
		return eventTransferReversed
	default:
		return eventUnknown
	}
}

// providerEvent is the wire shape of a provider callback body.
type providerEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference  string `json:"reference"`
		AmountKobo int64  `json:"amount"`
		Currency   string `json:"currency"`
		Status     string `json:"status"`
		Customer   struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// Ack is the acknowledgment returned to the provider. Any 2xx response
// carrying one of these statuses means "do not retry".
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Ack statuses
const (
	AckSuccess = "success"
	AckIgnored = "ignored"
	AckOK      = "ok"
)
