package schema

// Intent types recognized from chat input.
const (
	IntentRegisterName = "register_name"
	IntentCheckName    = "check_name"
	IntentPriceQuote   = "price_quote"
	IntentRenewName    = "renew_name"
	IntentWatchName    = "watch_name"
	IntentUnknown      = "unknown"
)

type Intent struct {
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Label       string  `json:"label,omitempty"`
	Years       int     `json:"years,omitempty"`
	Description string  `json:"description"`
}

// Action is a fully-defaulted, validated command derived from an Intent.
// Defaulting happens in one place (the action builder), not per call site.
type Action struct {
	Type    string              `json:"type"`
	Request RegistrationRequest `json:"request"`
}
