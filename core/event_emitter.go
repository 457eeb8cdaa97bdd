package orchestration

import events "github.com/koscakluka/ema-debate/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts SessionOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.TurnRevealed:
			if opts.onTurnRevealed != nil {
				opts.onTurnRevealed(typedEvent.ID, typedEvent.Turn)
			}
		case events.TurnPlayed:
			if opts.onTurnPlayed != nil {
				opts.onTurnPlayed(typedEvent.ID, typedEvent.Outcome)
			}
		case events.AudioBlocked:
			if opts.onAudioBlocked != nil {
				opts.onAudioBlocked(typedEvent.Err)
			}
		case events.ProgressUpdated:
			if opts.onProgress != nil {
				opts.onProgress(typedEvent.Progress)
			}
		case events.SessionFinished:
			if opts.onFinished != nil {
				opts.onFinished()
			}
		case events.ResultsReady:
			if opts.onResults != nil {
				opts.onResults(typedEvent.Results)
			}
		case events.ResultsUnavailable:
			if opts.onResultsUnavailable != nil {
				opts.onResultsUnavailable(typedEvent.Err)
			}
		case events.TransportFailed:
			if opts.onTransportFailed != nil {
				opts.onTransportFailed(typedEvent.Err)
			}
		}
	}
}
