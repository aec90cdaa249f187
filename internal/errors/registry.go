package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://vango.dev/docs/edgerules/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Route Errors (E100-E103)
	// ============================================

	"E100": {
		Category: CategoryRoute,
		Message:  "Dynamic route has no segments",
		Detail:   "A route without a static path must describe its path as segments.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryRoute,
		Message:  "Redirect alias does not resolve",
		Detail:   "The route redirects to another route that is not part of the route table.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryRoute,
		Message:  "Prerendered file outside output directory",
		Detail:   "Prerendered pages must be written below the build output directory so they can be served by the host.",
		DocURL:   docBase + "E102",
	},
	"E103": {
		Category: CategoryRoute,
		Message:  "Invalid route pattern",
		Detail:   "Route patterns are URL paths where dynamic segments use [name], [...name], _name_ or _name___.",
		DocURL:   docBase + "E103",
	},

	// ============================================
	// Manifest Errors (E104-E106)
	// ============================================

	"E104": {
		Category: CategoryManifest,
		Message:  "Unsupported manifest format",
		Detail:   "Route manifests must be .json, .yaml, .yml or .toml files.",
		DocURL:   docBase + "E104",
	},
	"E105": {
		Category: CategoryManifest,
		Message:  "Manifest could not be parsed",
		Detail:   "The route manifest is not valid for its format.",
		DocURL:   docBase + "E105",
	},
	"E106": {
		Category: CategoryManifest,
		Message:  "Invalid redirect specification",
		Detail:   "A redirect is either a destination string or an object with destination and status.",
		DocURL:   docBase + "E106",
	},

	// ============================================
	// Config Errors (E120-E141)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The edgerules.json file could not be read or parsed.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Unknown output mode or format",
		Detail:   "output must be static, server or hybrid; build.format must be file or directory.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range.",
		DocURL:   docBase + "E122",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Project config not found",
		Detail:   "No edgerules.json was found in this directory or any parent directory.",
		DocURL:   docBase + "E141",
	},
	"E143": {
		Category: CategoryConfig,
		Message:  "Project config already exists",
		Detail:   "An edgerules.json is already present in this directory.",
		DocURL:   docBase + "E143",
	},

	// ============================================
	// Build, Publish and Preview Errors (E142-E160)
	// ============================================

	"E142": {
		Category: CategoryBuild,
		Message:  "Build output could not be written",
		Detail:   "Writing the generated rule files failed.",
		DocURL:   docBase + "E142",
	},
	"E150": {
		Category: CategoryPublish,
		Message:  "Publish failed",
		Detail:   "Uploading the generated rule files to the bucket failed.",
		DocURL:   docBase + "E150",
	},
	"E160": {
		Category: CategoryPreview,
		Message:  "Preview server failed",
		Detail:   "The local preview server stopped with an error.",
		DocURL:   docBase + "E160",
	},

	// ============================================
	// CLI Errors (E170-E179)
	// ============================================

	"E170": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command-line flag has an unsupported value.",
		DocURL:   docBase + "E170",
	},
}

// Lookup returns the template for a code, if it is registered.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered error code.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
