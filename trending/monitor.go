package trending

import (
	"time"

	"github.com/switchwise/newspulse/core"
)

// Monitor provides hooks to observe the detection process.
// Implement this interface to track intermediate steps and results during detection.
type Monitor interface {
	Start(start, end time.Time)
	AfterArticleRetrieval(articles []*core.Article)
	CrossSourceMatch(a, b core.ID, score float32)
	Finish(results []*core.TrendingArticle)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ time.Time)                          {}
func (n *noopMonitor) AfterArticleRetrieval(_ []*core.Article)       {}
func (n *noopMonitor) CrossSourceMatch(_, _ core.ID, _ float32)      {}
func (n *noopMonitor) Finish(_ []*core.TrendingArticle)              {}
