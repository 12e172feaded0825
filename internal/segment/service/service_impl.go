package service

import (
	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
	"github.com/smallbiznis/loyara/internal/segment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log *zap.Logger
}

type Service struct {
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		log: p.Log.Named("segment.service"),
	}
}

// Classify scans the rule table in its given order and returns the first
// rule whose inclusive range contains the score. Table order is the
// tie-break for overlapping ranges, not score magnitude.
func (s *Service) Classify(score int, rules []catalogdomain.SegmentRule) string {
	for _, rule := range rules {
		if rule.ScoreMin <= score && score <= rule.ScoreMax {
			return rule.SegmentName
		}
	}
	return domain.UnclassifiedSegment
}
