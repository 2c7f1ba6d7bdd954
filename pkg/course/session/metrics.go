package session

import "ai-livecourse-be/pkg/classifier"

// Metrics holds route counters and irrelevance-source counters. Observability
// only: nothing in the engine branches on these values.
type Metrics struct {
	Routes      map[classifier.Route]int `json:"routes"`
	Irrelevance map[string]int           `json:"irrelevance"`
}

func newMetrics() Metrics {
	return Metrics{
		Routes:      make(map[classifier.Route]int),
		Irrelevance: make(map[string]int),
	}
}

func (m *Metrics) countRoute(route classifier.Route) {
	m.Routes[route]++
}

func (m *Metrics) countIrrelevance(source classifier.IrrelevanceSource) {
	m.Irrelevance[string(source)]++
}
