package daemon

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

// ExplainerFactory builds the explainer client on first use.
type ExplainerFactory func(ctx context.Context) (ai.Explainer, error)

// lazyExplainer holds the explainer handle. The client is only created on
// the first explain request, so a daemon that only resolves commands never
// opens a second remote connection.
type lazyExplainer struct {
	mu     sync.Mutex
	newFn  ExplainerFactory
	client ai.Explainer
	warmed bool
}

func newLazyExplainer(newFn ExplainerFactory) *lazyExplainer {
	return &lazyExplainer{newFn: newFn}
}

// get returns the client, creating it if needed.
func (l *lazyExplainer) get(ctx context.Context) (ai.Explainer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}
	if l.newFn == nil {
		return nil, ai.ErrNoExplainer
	}

	client, err := l.newFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create explainer: %w", err)
	}
	l.client = client
	return client, nil
}

// markWarm records that the client holds an open connection.
func (l *lazyExplainer) markWarm() {
	l.mu.Lock()
	l.warmed = true
	l.mu.Unlock()
}

// warm returns the client only once it has been warmed.
func (l *lazyExplainer) warm() ai.Explainer {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.warmed {
		return nil
	}
	return l.client
}
