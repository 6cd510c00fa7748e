// Package companieshouse implements the Companies House public data API
// client used by the sampler: authenticated rate-limited HTTP transport,
// endpoint construction, and the paginated officer fetcher.
package companieshouse
