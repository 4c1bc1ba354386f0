package search

// Result captures a single entry returned by a search provider.
// Values are never mutated after construction; the timestamp is supplied
// explicitly by whoever builds the result.
type Result struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Snippet   string `json:"snippet"`
	Source    string `json:"source"`
	Favicon   string `json:"favicon"`
	Timestamp int64  `json:"timestamp"`
}

// ToMap converts the result into a plain key/value form suitable for
// storage collaborators that speak generic documents.
func (r Result) ToMap() map[string]any {
	return map[string]any{
		"title":     r.Title,
		"url":       r.URL,
		"snippet":   r.Snippet,
		"source":    r.Source,
		"favicon":   r.Favicon,
		"timestamp": r.Timestamp,
	}
}

// ResultFromMap rebuilds a Result from its key/value form. Missing keys
// default to zero values so partially populated documents stay loadable.
func ResultFromMap(data map[string]any) Result {
	result := Result{
		Title:   stringField(data, "title"),
		URL:     stringField(data, "url"),
		Snippet: stringField(data, "snippet"),
		Source:  stringField(data, "source"),
		Favicon: stringField(data, "favicon"),
	}

	switch ts := data["timestamp"].(type) {
	case int64:
		result.Timestamp = ts
	case int:
		result.Timestamp = int64(ts)
	case float64:
		// JSON decoding yields float64 for numbers.
		result.Timestamp = int64(ts)
	}

	return result
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
