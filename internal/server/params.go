package server

// StringParam returns the string argument key, or def when absent.
func StringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

// IntParam returns the numeric argument key, or def when absent. JSON numbers
// arrive as float64.
func IntParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

// BoolParam returns the boolean argument key, or def when absent.
func BoolParam(params map[string]interface{}, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
