package alerting

import "github.com/wildguard/wildguard/internal/models"

// SelectTop picks the most confident dangerous detection from a batch.
// Ties are broken by first-seen order. The second return is false when the
// batch holds no dangerous detection; that is an expected outcome, not an
// error.
func SelectTop(batch []models.Detection, isDanger func(string) bool) (models.Detection, bool) {
	var top models.Detection
	found := false
	for _, d := range batch {
		if !isDanger(d.Label) {
			continue
		}
		if !found || d.Confidence > top.Confidence {
			top = d
			found = true
		}
	}
	return top, found
}
