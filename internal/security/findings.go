package security

import "github.com/jfowler-cloud/scaffold-ai/internal/core"

// Findings flattens the review into report rows. Recommendations become
// "info" rows with the advice in Advice.
func (r *Review) Findings() []core.Finding {
	if r == nil {
		return nil
	}
	out := make([]core.Finding, 0, len(r.CriticalIssues)+len(r.Warnings)+len(r.Recommendations))
	for _, i := range r.Issues() {
		out = append(out, core.Finding{
			Source:      i.Service,
			Level:       string(i.Severity),
			Description: i.Issue,
			Reference:   i.NodeID,
			Advice:      i.Recommendation,
		})
	}
	for _, rec := range r.Recommendations {
		out = append(out, core.Finding{
			Source:    rec.Service,
			Level:     "info",
			Reference: rec.NodeID,
			Advice:    rec.Recommendation,
		})
	}
	return out
}
