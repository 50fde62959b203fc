package schema

// KV store bucket names.
const (
	RegistrationsBucket    = "registrations"
	WatchPendingPoolBucket = "watch_pending_pool"
	ConstantsBucket        = "constants"
)

var AllBuckets = []string{
	RegistrationsBucket,
	WatchPendingPoolBucket,
	ConstantsBucket,
}
