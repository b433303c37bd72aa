package api

import "github.com/starford/raido/internal/relocate"

// RelocateSummaryMinimal is the smallest useful answer: did it work, and
// where did the folder end up.
type RelocateSummaryMinimal struct {
	Success     bool   `json:"success"`
	Destination string `json:"destination"`
}

// RelocateSummaryConcise is the default response tier.
type RelocateSummaryConcise struct {
	Success           bool     `json:"success"`
	Operation         string   `json:"operation"`
	Source            string   `json:"source"`
	Destination       string   `json:"destination"`
	ReferencesUpdated int      `json:"references_updated"`
	ReferencesScanned int      `json:"references_scanned"`
	ScanTruncated     bool     `json:"scan_truncated,omitempty"`
	DryRun            bool     `json:"dry_run,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// RelocateSummaryDetailed adds the per-document list.
type RelocateSummaryDetailed struct {
	RelocateSummaryConcise
	Documents []string `json:"documents"`
}

// summarize shapes an engine result for the requested verbosity tier.
func summarize(res *relocate.Result, format string) any {
	concise := RelocateSummaryConcise{
		Success:           res.Success,
		Operation:         res.Kind,
		Source:            res.Source,
		Destination:       res.Destination,
		ReferencesUpdated: res.ReferencesUpdated,
		ReferencesScanned: res.ReferencesScanned,
		ScanTruncated:     res.ScanTruncated,
		DryRun:            res.DryRun,
		Warnings:          res.Warnings,
	}
	switch format {
	case FormatMinimal:
		return RelocateSummaryMinimal{Success: res.Success, Destination: res.Destination}
	case FormatDetailed:
		docs := res.Documents
		if docs == nil {
			docs = []string{}
		}
		return RelocateSummaryDetailed{RelocateSummaryConcise: concise, Documents: docs}
	default:
		return concise
	}
}
