package companieshouse

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// BaseURL is the base URL for the Companies House public data API
	BaseURL = "https://api.company-information.service.gov.uk"

	// OfficersEndpoint is the endpoint pattern for a company's officer list
	OfficersEndpoint = "/company/%s/officers"
)

// OfficersURL constructs the URL for fetching a company's officers at the
// given pagination offset
func OfficersURL(baseURL, companyID string, startIndex int) string {
	params := url.Values{}
	params.Set("start_index", strconv.Itoa(startIndex))

	endpoint := fmt.Sprintf(OfficersEndpoint, url.PathEscape(companyID))
	return fmt.Sprintf("%s%s?%s", baseURL, endpoint, params.Encode())
}
