package domain

import (
	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
)

// UnclassifiedSegment is returned when no boundary rule matches a score.
const UnclassifiedSegment = "Unclassified"

// Service maps an aggregate RFM score to a named segment via the boundary
// rule table. Ranges are inclusive and may overlap; the first matching rule
// in table order wins.
type Service interface {
	Classify(score int, rules []catalogdomain.SegmentRule) string
}
