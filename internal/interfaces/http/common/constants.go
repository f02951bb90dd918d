package common

const (
	// MaxRequestBody limits JSON request bodies when the server is not configured otherwise.
	MaxRequestBody = 1 << 20
	// DefaultListLimit caps list endpoints without an explicit ?limit=.
	DefaultListLimit = 100
	// MaxListLimit is the largest ?limit= honoured by list endpoints.
	MaxListLimit = 1000
)
