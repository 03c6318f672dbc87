package knowledge

import "github.com/poiesic/diseasekb/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to trace intermediate steps of a query.
type SearchMonitor interface {
	Start(query string, k int)
	AfterQueryEmbedding(vector []float32)
	Finish(hits []core.RetrievalHit)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)           {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32) {}
func (n *noopMonitor) Finish(_ []core.RetrievalHit)    {}
