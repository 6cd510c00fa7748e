package companieshouse

// Officer is one appointment record as returned by the API. The record is
// kept opaque and copied verbatim into the result store; only the role
// field is ever interpreted.
type Officer map[string]interface{}

// Role returns the officer's role string, or "" if absent
func (o Officer) Role() string {
	role, _ := o["officer_role"].(string)
	return role
}

// OfficerList is one page of the officers endpoint response
type OfficerList struct {
	Items        []Officer `json:"items"`
	ItemsPerPage int       `json:"items_per_page"`
	StartIndex   int       `json:"start_index"`
	TotalResults int       `json:"total_results"`
}
