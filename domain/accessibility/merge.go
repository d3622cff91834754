package accessibility

// MergeTask merges a record extracted from the currently-rendered view
// into the existing durable record with the same id.
//
// The contract is a field-level union in which the extraction wins only
// for the fields it actually carries: identity fields (name, url,
// standard) always come from the extracted record, the last-result
// summary comes from the extraction when it has one, and everything the
// extraction does not carry (audit configuration, a previously cached
// last result) is preserved from the existing record.
func MergeTask(extracted, existing *Task) *Task {
	if existing == nil {
		return extracted.Clone()
	}

	merged := existing.Clone()
	merged.ID = extracted.ID
	merged.Name = extracted.Name
	merged.URL = extracted.URL
	merged.Standard = extracted.Standard
	if extracted.LastResult != nil {
		lr := *extracted.LastResult
		merged.LastResult = &lr
	}
	if len(extracted.Ignore) > 0 {
		merged.Ignore = append([]string(nil), extracted.Ignore...)
	}
	if len(extracted.Actions) > 0 {
		merged.Actions = append([]string(nil), extracted.Actions...)
	}
	if extracted.Timeout != 0 {
		merged.Timeout = extracted.Timeout
	}
	if extracted.Wait != 0 {
		merged.Wait = extracted.Wait
	}
	if extracted.Username != "" {
		merged.Username = extracted.Username
	}
	if extracted.Password != "" {
		merged.Password = extracted.Password
	}
	if len(extracted.Headers) > 0 {
		merged.Headers = make(map[string]string, len(extracted.Headers))
		for k, v := range extracted.Headers {
			merged.Headers[k] = v
		}
	}
	if extracted.HideElements != "" {
		merged.HideElements = extracted.HideElements
	}
	return merged
}
