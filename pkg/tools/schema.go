package tools

// Property helpers for BaseToolSchema.

// String describes a string parameter.
func String(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// Enum describes a string parameter restricted to values.
func Enum(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "enum": values}
}

// Integer describes an integer parameter.
func Integer(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

// IntegerRange describes an integer parameter with inclusive bounds.
func IntegerRange(description string, lo, hi int) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description, "minimum": lo, "maximum": hi}
}

// Number describes a floating point parameter.
func Number(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

// Boolean describes a boolean parameter.
func Boolean(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

// Array describes an array parameter whose elements match items.
func Array(description string, items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "description": description, "items": items}
}

// Object describes a free-form object parameter.
func Object(description string) map[string]interface{} {
	return map[string]interface{}{"type": "object", "description": description}
}

// Timeout is the optional per-call timeout accepted by most page tools.
func Timeout() map[string]interface{} {
	return IntegerRange("Timeout in milliseconds (defaults to the server setting)", 100, 300000)
}
