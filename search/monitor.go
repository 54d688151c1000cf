package search

import "github.com/civiclens/bioindex/core"

// QueryMonitor provides hooks to observe the query process.
// Implement this interface to track intermediate steps during a query.
type QueryMonitor interface {
	Start(text string, topK int)
	AfterEmbedding(vector []float32)
	AfterSearch(matches []*core.Match)
	Finish(passages []*core.Passage)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)       {}
func (n *noopMonitor) AfterEmbedding(_ []float32)  {}
func (n *noopMonitor) AfterSearch(_ []*core.Match) {}
func (n *noopMonitor) Finish(_ []*core.Passage)    {}
