// Package analysis examines a completed sample for director origins and
// compliance indicators: which companies have a UK-resident director, how
// many directors claim UK residence without a UK address, and how late
// filings and default office addresses distribute across the two groups.
package analysis

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"chsampler/pkg/companieshouse"
	"chsampler/pkg/store"
)

// z95 is the z-score for a 95% confidence interval
const z95 = 1.96

// Group labels for companies with and without a UK-resident director
const (
	GroupWithUK    = "with_uk"
	GroupWithoutUK = "without_uk"
)

// LoadUKVariants reads the UK spelling variants file, one variant per line,
// skipping blank lines, and returns a case-folded set. The list is curated
// by hand; countries missed here silently land in the foreign group, which
// is why DirectorCountries exists for inspection.
func LoadUKVariants(path string) (map[string]bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open variants file: %w", err)
	}
	defer file.Close()

	variants := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		variants[strings.ToLower(line)] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read variants file: %w", err)
	}

	return variants, nil
}

// DirectorCountries collects the unique country strings claimed by any
// director in the sample, sorted, for variant-list curation
func DirectorCountries(companies map[string]store.CompanyResult) []string {
	seen := make(map[string]bool)
	for _, info := range companies {
		for _, officer := range info.Directors {
			if country := officerCountry(officer); country != "" {
				seen[strings.TrimSpace(country)] = true
			}
			if country := officerAddressCountry(officer); country != "" {
				seen[strings.TrimSpace(country)] = true
			}
		}
	}

	countries := make([]string, 0, len(seen))
	for country := range seen {
		countries = append(countries, country)
	}
	sort.Strings(countries)
	return countries
}

// Counts classifies the sample by UK director presence
type Counts struct {
	WithUK                int
	WithoutUK             int
	QuestionableResidence int
	TotalDirectors        int
}

// TotalCompanies returns the number of classified companies
func (c Counts) TotalCompanies() int {
	return c.WithUK + c.WithoutUK
}

// CountByUKDirectorStatus classifies each company by whether it has at
// least one director whose stated residence AND address country are both
// UK variants. Directors claiming UK residence with a non-UK address are
// counted as questionable.
func CountByUKDirectorStatus(companies map[string]store.CompanyResult, variants map[string]bool) Counts {
	var counts Counts

	for _, info := range companies {
		hasUK := false

		for _, officer := range info.Directors {
			counts.TotalDirectors++

			if !isUK(officerCountry(officer), variants) {
				continue
			}
			if isUK(officerAddressCountry(officer), variants) {
				hasUK = true
			} else {
				counts.QuestionableResidence++
			}
		}

		if hasUK {
			counts.WithUK++
		} else {
			counts.WithoutUK++
		}
	}

	return counts
}

// ComplianceMetrics counts compliance indicators for one group
type ComplianceMetrics struct {
	LateConfirmation int
	LateAccounts     int
	DefaultAddress   int
}

// Compliance computes compliance indicators for companies grouped by UK
// director presence. Due dates use the registry's dd/mm/yyyy format;
// unparseable dates are ignored rather than counted either way.
func Compliance(companies map[string]store.CompanyResult, variants map[string]bool, today time.Time) map[string]ComplianceMetrics {
	metrics := map[string]ComplianceMetrics{
		GroupWithUK:    {},
		GroupWithoutUK: {},
	}

	day := today.Truncate(24 * time.Hour)

	for _, info := range companies {
		group := GroupWithoutUK
		if HasUKDirector(info, variants) {
			group = GroupWithUK
		}
		m := metrics[group]

		if due, err := parseDueDate(info.CompanyData["ConfStmtNextDueDate"]); err == nil && due.Before(day) {
			m.LateConfirmation++
		}
		if due, err := parseDueDate(info.CompanyData["Accounts.NextDueDate"]); err == nil && due.Before(day) {
			m.LateAccounts++
		}

		if hasDefaultAddress(info) {
			m.DefaultAddress++
		}

		metrics[group] = m
	}

	return metrics
}

// HasUKDirector reports whether any director's residence and address
// country are both UK variants
func HasUKDirector(info store.CompanyResult, variants map[string]bool) bool {
	for _, officer := range info.Directors {
		if isUK(officerCountry(officer), variants) && isUK(officerAddressCountry(officer), variants) {
			return true
		}
	}
	return false
}

// Proportion returns the sample proportion count/n and its 95% margin of
// error. Both are zero when n is zero.
func Proportion(count, n int) (p, moe float64) {
	if n == 0 {
		return 0, 0
	}
	p = float64(count) / float64(n)
	moe = z95 * math.Sqrt(p*(1-p)/float64(n))
	return p, moe
}

// RatioWithError returns num/den and the propagated 95% margin of error for
// the ratio of two proportions
func RatioWithError(num, moeNum, den, moeDen float64) (ratio, moe float64) {
	if den == 0 {
		return 0, 0
	}
	ratio = num / den
	if ratio == 0 {
		return 0, 0
	}

	var relErrSq float64
	if num > 0 && moeNum > 0 {
		relErrSq += (moeNum / num) * (moeNum / num)
	}
	if den > 0 && moeDen > 0 {
		relErrSq += (moeDen / den) * (moeDen / den)
	}
	if relErrSq > 0 {
		moe = math.Abs(ratio) * math.Sqrt(relErrSq)
	}

	return ratio, moe
}

// officerCountry returns the director's stated residence country
func officerCountry(o companieshouse.Officer) string {
	if s, ok := o["country_of_residence"].(string); ok && s != "" {
		return s
	}
	if s, ok := o["residence_country"].(string); ok && s != "" {
		return s
	}
	return ""
}

// officerAddressCountry returns the country from the director's service address
func officerAddressCountry(o companieshouse.Officer) string {
	address, ok := o["address"].(map[string]interface{})
	if !ok {
		return ""
	}
	country, _ := address["country"].(string)
	return country
}

// isUK reports whether the country string matches a UK variant
func isUK(country string, variants map[string]bool) bool {
	if country == "" {
		return false
	}
	return variants[strings.ToLower(strings.TrimSpace(country))]
}

// parseDueDate parses the registry's dd/mm/yyyy due date format
func parseDueDate(value string) (time.Time, error) {
	return time.Parse("02/01/2006", strings.TrimSpace(value))
}

// hasDefaultAddress reports whether the company's registered address, or
// failing that any director's service address field, mentions the
// registrar's default address
func hasDefaultAddress(info store.CompanyResult) bool {
	if strings.Contains(strings.ToLower(info.CompanyData["RegAddress.AddressLine1"]), "default address") {
		return true
	}

	for _, officer := range info.Directors {
		address, ok := officer["address"].(map[string]interface{})
		if !ok {
			continue
		}
		for _, value := range address {
			if s, ok := value.(string); ok && strings.Contains(strings.ToLower(s), "default address") {
				return true
			}
		}
	}

	return false
}
