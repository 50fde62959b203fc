package schema

type FlowConfig struct {
	ID uint `gorm:"primarykey"`

	// seconds; zero means "use the controller's value"
	MinCommitmentAge int64 `json:"minCommitmentAge"`
	MaxCommitmentAge int64 `json:"maxCommitmentAge"`

	// minutes between watch-list availability sweeps
	WatchInterval int64 `json:"watchInterval"`
}

type IpRateWhitelist struct {
	OriginOrIP  string // e.g "188.0.2.2"
	Available   bool   `gorm:"index:idx3"` // true means effective
	Description string
}
