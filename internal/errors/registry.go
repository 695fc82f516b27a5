package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Configuration Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "screenobserver.json could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations use Go syntax, for example \"250ms\" or \"5s\".",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "The server port must be between 0 and 65535.",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid path",
		Detail:   "Route paths must start with a slash and must not collide.",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Invalid environment variable",
		Detail:   "A SCREENOBSERVER_* environment variable could not be parsed.",
	},
	"E140": {
		Category: CategoryConfig,
		Message:  "Config file already exists",
		Detail:   "Refusing to overwrite an existing screenobserver.json.",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No screenobserver.json was found.",
	},

	// ============================================
	// Server Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryServer,
		Message:  "Server failed to start",
		Detail:   "The HTTP listener could not be started. The address may already be in use.",
	},
	"E161": {
		Category: CategoryServer,
		Message:  "Assets directory not found",
		Detail:   "The configured assets directory does not exist.",
	},

	// ============================================
	// Protocol Errors (E180-E189)
	// ============================================

	"E180": {
		Category: CategoryProtocol,
		Message:  "WebSocket connection failed",
		Detail:   "The browser could not connect to the screen observer endpoint.",
	},
	"E181": {
		Category: CategoryProtocol,
		Message:  "Handshake rejected",
		Detail:   "The server rejected the handshake. Check that client and server speak the same protocol version.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
