package user

// Sentinel row inserted by the relational probe to prove write capability.
// The insert is conflict-skipped on username, so repeated runs never
// produce a duplicate.
const (
	SentinelUsername = "storagecheck_probe"
	SentinelEmail    = "storagecheck@echo.local"
	SentinelPassword = "storagecheck-probe-password"
)
