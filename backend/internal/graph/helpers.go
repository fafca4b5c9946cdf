package graph

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromMap(m map[string]any, key string) string {
	if str, ok := m[key].(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record Record, key string) int64 {
	switch v := record[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func getPersonFromRecord(record Record, key string) (Person, bool) {
	val, ok := record[key]
	if !ok || val == nil {
		return Person{}, false
	}
	m, ok := val.(map[string]any)
	if !ok {
		return Person{}, false
	}
	return personFromMap(m), true
}

func getPersonsFromRecord(record Record, key string) []Person {
	val, ok := record[key]
	if !ok || val == nil {
		return []Person{}
	}
	list, ok := val.([]any)
	if !ok {
		return []Person{}
	}
	persons := make([]Person, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			persons = append(persons, personFromMap(m))
		}
	}
	return persons
}

func getStringSliceFromRecord(record Record, key string) []string {
	val, ok := record[key]
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]any); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	if slice, ok := val.([]string); ok {
		return slice
	}
	return []string{}
}
