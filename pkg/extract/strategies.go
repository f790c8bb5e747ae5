package extract

import (
	"igharvest/pkg/logger"
)

// Strategy is one attempt at producing a field value from a page
// snapshot. Attempt reports false when the strategy finds nothing;
// chains fall through to the next entry.
type Strategy struct {
	Name    string
	Attempt func(p *Page) (string, bool)
}

// runChain tries strategies in order and returns the first hit, plus
// the name of the strategy that produced it. The fallback value is
// returned when every strategy misses.
func runChain(log logger.Logger, field string, p *Page, chain []Strategy, fallback string) string {
	for _, s := range chain {
		value, ok := s.Attempt(p)
		if !ok {
			continue
		}
		log.DebugWithFields("field extracted", map[string]interface{}{
			"field":    field,
			"strategy": s.Name,
		})
		return value
	}
	log.DebugWithFields("all strategies missed, using fallback", map[string]interface{}{
		"field": field,
	})
	return fallback
}
