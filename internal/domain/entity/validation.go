package entity

// Validate checks that a ListingEntry carries the minimum fields the
// pipeline needs before it can be dispatched to a fetch worker. This is a
// structural check only — reachability/SSRF validation of URL lives in
// pkg/security, not here, so the domain layer stays free of network calls.
func (e *ListingEntry) Validate() error {
	if e.URL == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	if !e.Category.IsValid() {
		return &ValidationError{Field: "category", Message: "category is not in the closed enum"}
	}
	return nil
}

// Validate checks the structural shape of a CrawlSlot.
func (s *CrawlSlot) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Message: "slot id is required"}
	}
	if !s.Category.IsValid() {
		return &ValidationError{Field: "category", Message: "category is not in the closed enum"}
	}
	if !s.Window.Start.Before(s.Window.End) {
		return &ValidationError{Field: "window", Message: "window start must precede end"}
	}
	return nil
}

// Validate checks the structural shape of an Instance.
func (i *Instance) Validate() error {
	if i.ID == "" {
		return &ValidationError{Field: "id", Message: "instance id is required"}
	}
	for _, c := range i.Capabilities {
		if !c.IsValid() {
			return &ValidationError{Field: "capabilities", Message: "capability category is not in the closed enum"}
		}
	}
	return nil
}
