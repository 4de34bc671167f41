package domain

import "encoding/json"

// EventType tags one unit of the incremental answer stream.
type EventType string

const (
	EventSources EventType = "sources"
	EventAnswer  EventType = "answer"
	EventError   EventType = "error"
	EventDone    EventType = "done"
)

// StreamEvent is one element of the streaming answer sequence. Exactly one
// of the payload fields is meaningful for a given type: Sources for
// EventSources, Content for EventAnswer, Message for EventError. A stream
// carries at most one EventSources, then zero or more EventAnswer fragments,
// then exactly one terminal EventDone or EventError.
type StreamEvent struct {
	Type    EventType
	Content string
	Sources []RetrievalResult
	Message string
}

// SourcesEvent wraps a retrieval result list as the stream's sources event.
func SourcesEvent(sources []RetrievalResult) StreamEvent {
	return StreamEvent{Type: EventSources, Sources: sources}
}

// AnswerEvent wraps one incremental answer fragment.
func AnswerEvent(fragment string) StreamEvent {
	return StreamEvent{Type: EventAnswer, Content: fragment}
}

// ErrorEvent wraps a failure message as the stream's terminal error event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}

// DoneEvent is the stream's terminal success event.
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// MarshalJSON renders the event in the wire shape consumed by SSE clients:
// {"event":"sources","sources":[...]}, {"event":"answer","content":"..."},
// {"event":"error","message":"..."}, {"event":"done"}.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventSources:
		sources := e.Sources
		if sources == nil {
			sources = []RetrievalResult{}
		}
		return json.Marshal(struct {
			Event   EventType         `json:"event"`
			Sources []RetrievalResult `json:"sources"`
		}{e.Type, sources})
	case EventAnswer:
		return json.Marshal(struct {
			Event   EventType `json:"event"`
			Content string    `json:"content"`
		}{e.Type, e.Content})
	case EventError:
		return json.Marshal(struct {
			Event   EventType `json:"event"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	default:
		return json.Marshal(struct {
			Event EventType `json:"event"`
		}{EventDone})
	}
}
