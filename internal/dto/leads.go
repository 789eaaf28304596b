package dto

// LeadListFilter contains query parameters for the lead listing endpoint.
type LeadListFilter struct {
	Status string
	Limit  int
}

// MarkResponseRequest records an inbound reply for a lead.
type MarkResponseRequest struct {
	Notes string `json:"notes"`
}

// UpdateNotesRequest replaces the operator notes on a lead.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}
