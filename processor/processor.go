// Package processor holds helpers shared by the built-in task processors.
package processor

// StringSetting returns the string setting key from settings.
func StringSetting(settings map[string]interface{}, key string) string {
	s, _ := settings[key].(string)
	return s
}

// StringsSetting returns the string list setting key from settings.
// Settings decoded from JSON hold lists as []interface{}.
func StringsSetting(settings map[string]interface{}, key string) []string {
	switch v := settings[key].(type) {
	case []string:
		return v
	case []interface{}:
		r := make([]string, 0, len(v))
		for _, i := range v {
			if s, ok := i.(string); ok {
				r = append(r, s)
			}
		}
		return r
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// Bool interprets v as a boolean as submitted by forms or JSON.
func Bool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch b {
		case "1", "true", "yes", "on":
			return true
		}
	case float64:
		return b != 0
	}
	return false
}
