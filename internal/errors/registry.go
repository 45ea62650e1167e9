package errors

import "sort"

// Registered codes.
const (
	CodeInvalidName         = "H001"
	CodeDuplicateStore      = "H002"
	CodeNotFound            = "H003"
	CodeInvalidArgument     = "H004"
	CodeTypeMismatch        = "H005"
	CodeUpdateDepthExceeded = "H006"
	CodeTriggerFailed       = "H007"
	CodeListenerFailed      = "H008"
	CodeInvalidConfig       = "H020"
	CodeConfigNotFound      = "H021"

	CodeSetStateOnReducer   = "W001"
	CodeDispatchOnState     = "W002"
	CodeDuplicateSubscriber = "W003"
	CodePayloadType         = "W004"
	CodeStoreReplaced       = "W005"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Registry Errors (H001-H005)
	// ============================================

	CodeInvalidName: {
		Category:   CategoryRegistry,
		Message:    "Invalid store name",
		Detail:     "Store names must be non-empty strings.",
		Suggestion: "Give the store a descriptive name such as \"cart\" or \"session\".",
	},
	CodeDuplicateStore: {
		Category:   CategoryRegistry,
		Message:    "Store already exists",
		Detail:     "A store with this name is already registered and the registry uses the strict creation policy.",
		Suggestion: "Pick a unique name or build the registry with WithCreatePolicy(PolicyOverride).",
	},
	CodeNotFound: {
		Category:   CategoryRegistry,
		Message:    "Store does not exist",
		Detail:     "No store with this name has been created in this registry.",
		Suggestion: "Create the store before any component or subscriber looks it up.",
	},
	CodeInvalidArgument: {
		Category: CategorySubscription,
		Message:  "Invalid argument",
		Detail:   "A callable value was required but nil was given.",
	},
	CodeTypeMismatch: {
		Category: CategoryRegistry,
		Message:  "Store state type mismatch",
		Detail:   "The store exists but holds a different state type than the one requested.",
	},

	// ============================================
	// Update Errors (H006-H008)
	// ============================================

	CodeUpdateDepthExceeded: {
		Category:   CategoryUpdate,
		Message:    "Maximum update depth exceeded",
		Detail:     "A trigger or subscriber kept updating stores from inside notification. This usually means two stores update each other unconditionally.",
		Suggestion: "Guard the nested update with a condition, or raise WithMaxUpdateDepth if the nesting is intentional.",
	},
	CodeTriggerFailed: {
		Category: CategoryUpdate,
		Message:  "Store trigger failed",
		Detail:   "A component trigger panicked while being notified. The remaining triggers were still notified.",
	},
	CodeListenerFailed: {
		Category: CategorySubscription,
		Message:  "Store subscriber failed",
		Detail:   "A subscriber panicked while being notified. The remaining subscribers were still notified.",
	},

	// ============================================
	// Config Errors (H020-H029)
	// ============================================

	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The hookstore configuration file contains an invalid value.",
	},
	CodeConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create hookstore.yaml or pass --config with the path to one.",
	},

	// ============================================
	// Misuse Warnings (W001-W005)
	// ============================================

	CodeSetStateOnReducer: {
		Category:   CategoryUpdate,
		Message:    "setState called on a reducer store",
		Detail:     "This store uses a reducer to handle its state updates. The call was ignored.",
		Suggestion: "Use Dispatch instead of SetState.",
	},
	CodeDispatchOnState: {
		Category:   CategoryUpdate,
		Message:    "dispatch called on a store without reducer",
		Detail:     "This store does not use a reducer to handle state updates. The call was ignored.",
		Suggestion: "Use SetState instead of Dispatch.",
	},
	CodeDuplicateSubscriber: {
		Category: CategorySubscription,
		Message:  "Subscriber already registered",
		Detail:   "This subscriber is already subscribed to this store. Skipping subscription.",
	},
	CodePayloadType: {
		Category: CategoryUpdate,
		Message:  "Update payload has the wrong type",
		Detail:   "The value passed to the untyped store handle cannot be used by this store. The call was ignored.",
	},
	CodeStoreReplaced: {
		Category: CategoryRegistry,
		Message:  "Store replaced",
		Detail:   "A store with this name already existed and was replaced under the override creation policy.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
