// Package stats computes APR summaries over stored opportunities.
package stats

import (
	"sort"

	"github.com/yourorg/yield-agg-api/internal/model"
)

// Summary aggregates the APR distribution of one opportunity group.
type Summary struct {
	Count     int `json:"count"`
	MeanAPR   int `json:"meanApr"`
	MedianAPR int `json:"medianApr"`
	TopAPR    int `json:"topApr"`
}

// Report groups summaries by category and chain, plus an overall roll-up.
type Report struct {
	Overall    Summary            `json:"overall"`
	ByCategory map[string]Summary `json:"byCategory"`
	ByChain    map[string]Summary `json:"byChain"`
}

// Compute builds a report over the given opportunities. Values are basis
// points, like the stored APR field.
func Compute(opportunities []model.Opportunity) Report {
	byCategory := make(map[string][]int)
	byChain := make(map[string][]int)
	all := make([]int, 0, len(opportunities))

	for _, o := range opportunities {
		all = append(all, o.APR)
		byCategory[string(o.Category)] = append(byCategory[string(o.Category)], o.APR)
		byChain[string(o.Chain)] = append(byChain[string(o.Chain)], o.APR)
	}

	report := Report{
		Overall:    summarize(all),
		ByCategory: make(map[string]Summary, len(byCategory)),
		ByChain:    make(map[string]Summary, len(byChain)),
	}
	for k, v := range byCategory {
		report.ByCategory[k] = summarize(v)
	}
	for k, v := range byChain {
		report.ByChain[k] = summarize(v)
	}
	return report
}

func summarize(aprs []int) Summary {
	if len(aprs) == 0 {
		return Summary{}
	}

	sum := 0
	top := aprs[0]
	for _, v := range aprs {
		sum += v
		if v > top {
			top = v
		}
	}

	return Summary{
		Count:     len(aprs),
		MeanAPR:   sum / len(aprs),
		MedianAPR: Median(aprs),
		TopAPR:    top,
	}
}

// Median returns the middle APR value; for even counts it is the mean of the
// middle pair. The input slice is not modified.
func Median(aprs []int) int {
	if len(aprs) == 0 {
		return 0
	}

	values := make([]int, len(aprs))
	copy(values, aprs)
	sort.Ints(values)

	n := len(values)
	if n%2 == 0 {
		return (values[n/2-1] + values[n/2]) / 2
	}
	return values[n/2]
}
