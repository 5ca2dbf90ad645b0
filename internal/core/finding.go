package core

// Finding is one row of a review report, independent of where it came from.
type Finding struct {
	Source      string `json:"source"` // service or component name
	Level       string `json:"level"`  // "info", "low", "medium", "high", "critical"
	Description string `json:"description"`
	Reference   string `json:"reference"` // node id, file path, etc.
	Advice      string `json:"advice"`
}

// CountLevels tallies findings by level.
func CountLevels(findings []Finding) map[string]int {
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.Level]++
	}
	return counts
}
