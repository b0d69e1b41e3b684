package recommend

import (
	"context"
	"time"
)

// Stream answers a request incrementally. The top candidates are sent
// first as an equipment event, followed by generated text tokens and a
// final done or error event. Cancelling ctx stops the stream and closes
// the channel; the turn is recorded only when the stream completes.
func (p *Pipeline) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	pl, err := p.prepare(ctx, req)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeOf(err), "stream").Inc()
		return nil, err
	}

	display := pl.selected[:min(streamDisplay, len(pl.selected))]
	start := time.Now()
	chunks, err := p.recommender.RecommendStream(ctx, pl.query, equipmentOf(display))
	if err != nil {
		p.logger.Warn("recommendation stream failed to start, using defaults", "err", err)
		chunks = nil
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer pl.release()
		defer observe(stageGenerate, start)

		send := func(ev Event) bool {
			ev.SessionID = pl.session.ID
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		items := make([]Item, len(display))
		for i, c := range display {
			items[i] = newItem(c, "")
		}
		if len(items) > 0 && !send(Event{Kind: EventEquipment, Equipment: items}) {
			requestsTotal.WithLabelValues(outcomeCanceled, "stream").Inc()
			return
		}

		outcome := outcomeOK
		switch {
		case len(display) == 0:
			outcome = outcomeNoMatch
		case pl.fallback:
			outcome = outcomeFallback
		}

		if chunks == nil {
			if !send(Event{Kind: EventToken, Token: DefaultExplanation}) {
				requestsTotal.WithLabelValues(outcomeCanceled, "stream").Inc()
				return
			}
		} else {
			for chunk := range chunks {
				if chunk.Err != nil {
					p.logger.Warn("recommendation stream failed", "err", chunk.Err)
					send(Event{Kind: EventError, Err: chunk.Err})
					requestsTotal.WithLabelValues(outcomeUpstream, "stream").Inc()
					return
				}
				if !send(Event{Kind: EventToken, Token: chunk.Content}) {
					requestsTotal.WithLabelValues(outcomeCanceled, "stream").Inc()
					return
				}
			}
			if ctx.Err() != nil {
				requestsTotal.WithLabelValues(outcomeCanceled, "stream").Inc()
				return
			}
		}

		p.recordTurn(pl, items)
		send(Event{Kind: EventDone})
		requestsTotal.WithLabelValues(outcome, "stream").Inc()
	}()
	return out, nil
}
