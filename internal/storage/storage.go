package storage

import "liquidityVault/internal/model"

// EventSink receives journaled vault and factory events.
type EventSink interface {
	PutEvents(events []model.VaultEvent) error
}

// ErrorSink receives logs that could not be decoded.
type ErrorSink interface {
	PutDecodeErrors(errs []model.DecodeError) error
}

// Fanout writes every batch to each sink in order and stops at the first
// failure.
type Fanout []EventSink

func (f Fanout) PutEvents(events []model.VaultEvent) error {
	for _, sink := range f {
		if err := sink.PutEvents(events); err != nil {
			return err
		}
	}
	return nil
}
