package companieshouse

import (
	"context"
	"errors"
	"strings"

	"chsampler/pkg/retry"
)

// Officer roles recognised for partitioning. Any other role is dropped.
const (
	RoleDirector  = "director"
	RoleSecretary = "secretary"
)

// FetchOfficers retrieves all officer records for a company, partitioned
// into directors and secretaries.
//
// Pages are fetched with offset pagination until an empty page is returned;
// the offset advances by the number of items actually received, so the loop
// adapts to whatever page size the API serves. Each page is attempted up to
// the configured number of times with a fixed pause between attempts. If a
// page still fails, the fetch for the whole company is abandoned and the
// lists accumulated from prior pages are returned, possibly both empty.
func (c *Client) FetchOfficers(ctx context.Context, companyID string) (directors, secretaries []Officer) {
	startIndex := 0

	for {
		page, err := c.fetchOfficerPage(ctx, companyID, startIndex)
		if err != nil {
			c.logger.WarnWithFields("abandoning officer fetch for company", map[string]interface{}{
				"company":     companyID,
				"start_index": startIndex,
				"error":       err.Error(),
			})
			return directors, secretaries
		}

		if len(page.Items) == 0 {
			return directors, secretaries
		}

		for _, officer := range page.Items {
			switch strings.ToLower(officer.Role()) {
			case RoleDirector:
				directors = append(directors, officer)
			case RoleSecretary:
				secretaries = append(secretaries, officer)
			}
		}

		startIndex += len(page.Items)
	}
}

// fetchOfficerPage fetches a single page of officers with the configured
// retry policy. Every failure is retried, matching the API's behaviour of
// returning transient errors under load; only cancellation short-circuits.
func (c *Client) fetchOfficerPage(ctx context.Context, companyID string, startIndex int) (*OfficerList, error) {
	url := OfficersURL(c.baseURL, companyID, startIndex)

	cfg := &retry.Config{
		MaxAttempts: c.retry.MaxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: c.retry.Delay},
		RetryIf: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		Context: ctx,
		Logger:  c.logger,
	}

	return retry.DoWithResult(func() (*OfficerList, error) {
		var page OfficerList
		if err := c.GetJSON(ctx, url, &page); err != nil {
			return nil, err
		}
		return &page, nil
	}, cfg)
}
