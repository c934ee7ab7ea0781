package completion

import (
	"go.uber.org/zap"

	"github.com/robottwo/redline/pkg/lineedit"
)

// Provider adapts the completion engine to the line editor's
// CompletionProvider interface. It runs on the editor's render path, so
// it only reads cache snapshots and never touches the network.
type Provider struct {
	engine *CompletionEngine
	logger *zap.Logger
}

func NewProvider(engine *CompletionEngine, logger *zap.Logger) *Provider {
	return &Provider{engine: engine, logger: logger}
}

func (p *Provider) Candidates(line string, pos int) []lineedit.Candidate {
	candidates := p.engine.Complete(line, pos)
	if len(candidates) == 0 {
		return nil
	}

	p.logger.Debug("completion query",
		zap.String("line", line),
		zap.Int("pos", pos),
		zap.Int("candidates", len(candidates)))

	out := make([]lineedit.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = lineedit.Candidate{
			Value:       c.Value,
			Start:       c.Start,
			End:         c.End,
			Description: c.Description,
		}
	}
	return out
}
