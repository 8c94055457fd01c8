package telegram

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// ConsoleSource reads newline-delimited update JSON from a reader.
// It is the development stand-in for a real transport collaborator.
type ConsoleSource struct {
	reader io.Reader

	once sync.Once
	stop chan struct{}
}

func NewConsoleSource(reader io.Reader) *ConsoleSource {
	return &ConsoleSource{reader: reader, stop: make(chan struct{})}
}

// Updates decodes updates until the reader ends or Close is called.
func (s *ConsoleSource) Updates(ctx context.Context) (<-chan Update, error) {
	out := make(chan Update)
	decoder := json.NewDecoder(s.reader)
	go func() {
		defer close(out)
		for {
			var update Update
			if err := decoder.Decode(&update); err != nil {
				return
			}
			select {
			case out <- update:
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
	return out, nil
}

func (s *ConsoleSource) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// ConsoleSink writes each action as one JSON line tagged with its
// platform method name.
type ConsoleSink struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func NewConsoleSink(writer io.Writer) *ConsoleSink {
	return &ConsoleSink{encoder: json.NewEncoder(writer)}
}

func (s *ConsoleSink) Deliver(ctx context.Context, actions []Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, action := range actions {
		entry := struct {
			Method  string `json:"method"`
			Payload Action `json:"payload"`
		}{Method: action.Method(), Payload: action}
		if err := s.encoder.Encode(entry); err != nil {
			return err
		}
	}
	return nil
}
