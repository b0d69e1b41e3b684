package search

import "github.com/poiesic/fabmatch/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterSemanticSearch(ids []string)
	AfterLexicalSearch(ids []string)
	Finish(results []*core.Candidate)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                 {}
func (n *noopMonitor) AfterSemanticSearch(_ []string) {}
func (n *noopMonitor) AfterLexicalSearch(_ []string)  {}
func (n *noopMonitor) Finish(_ []*core.Candidate)     {}
