package mailer

// ChangeEvent is a document-change notification delivered by the data store.
// Delivery is at-least-once: the same change may arrive more than once and
// the dispatcher will process it again (see DESIGN.md). For update events
// only the post-change snapshot is carried.
type ChangeEvent struct {
	Collection string                 `json:"collection"`
	Kind       EventKind              `json:"event"`
	DocumentID string                 `json:"documentId"`
	Document   map[string]interface{} `json:"document"`
}
