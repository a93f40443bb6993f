package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Renderer Errors (E100-E119)
	// ============================================

	"E101": {
		Category: CategoryResolve,
		Message:  "Renderer client module could not be resolved",
		DocURL:   "https://islands.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryResolve,
		Message:  "Invalid renderer descriptor",
		Detail:   "Every renderer needs both a server module and a client module.",
		DocURL:   "https://islands.dev/docs/errors/E102",
	},

	// ============================================
	// Configuration Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid islands.json",
		DocURL:   "https://islands.dev/docs/errors/E120",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		DocURL:   "https://islands.dev/docs/errors/E122",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Project configuration not found",
		DocURL:   "https://islands.dev/docs/errors/E141",
	},

	// ============================================
	// Component Errors (E150-E169)
	// ============================================

	"E150": {
		Category: CategoryIO,
		Message:  "Component could not be read",
		DocURL:   "https://islands.dev/docs/errors/E150",
	},
	"E151": {
		Category: CategoryCompile,
		Message:  "Component failed to compile",
		DocURL:   "https://islands.dev/docs/errors/E151",
	},
	"E160": {
		Category: CategoryCompile,
		Message:  "External compiler failed",
		Detail:   "The compiler process could not be started or returned an unreadable response.",
		DocURL:   "https://islands.dev/docs/errors/E160",
	},

	// ============================================
	// Build Errors (E170-E189)
	// ============================================

	"E170": {
		Category: CategoryIO,
		Message:  "Build output could not be written",
		DocURL:   "https://islands.dev/docs/errors/E170",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
