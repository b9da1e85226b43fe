package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// HandleEvent runs the trigger loop for one document-change event.
//
// Triggers are processed strictly sequentially, in store order, so one event
// produces at most one in-flight provider call at a time and the statistics
// read-modify-write needs no compare-and-swap. Concurrent invocations for
// different events are fine.
func (a *application) HandleEvent(ctx context.Context, event ChangeEvent) error {
	triggers, err := a.triggerRepo.FindForEvent(event.Collection, event.Kind)
	if err != nil {
		return errors.Wrapf(err, "Failed to load triggers for %s/%s", event.Collection, event.Kind)
	}

	if len(triggers) == 0 {
		return nil
	}

	if a.maxTriggersPerEvent > 0 && len(triggers) > a.maxTriggersPerEvent {
		a.logger.
			WithField("collection", event.Collection).
			WithField("event", event.Kind).
			WithField("dropped", len(triggers)-a.maxTriggersPerEvent).
			Warn("trigger list exceeds per-event cap, truncating")

		triggers = triggers[:a.maxTriggersPerEvent]
	}

	for i := range triggers {
		a.dispatchTrigger(ctx, &triggers[i], event)
	}

	return nil
}

// dispatchTrigger evaluates and fires one trigger. A trigger that does not
// match, or whose recipient field resolves empty, is skipped without a log
// entry and without touching its statistics. A trigger that is dispatched
// has its statistics updated whether or not the send succeeded: SendCount
// tracks attempts, the log entry stream tracks outcomes.
func (a *application) dispatchTrigger(ctx context.Context, trigger *Trigger, event ChangeEvent) {
	if !MatchesConditions(event.Document, trigger.Conditions) {
		triggersSkippedTotal.Inc()
		return
	}

	recipient := recipientOf(event.Document, trigger.RecipientField)
	if recipient == "" {
		triggersSkippedTotal.Inc()
		return
	}

	data := BuildContext(event.Document, trigger.DataMapping)

	result := a.sendOne(ctx, trigger.TemplateID, recipient, data, sendOptions{
		TriggerID:  trigger.ID,
		DocumentID: event.DocumentID,
		Collection: event.Collection,
		SentBy:     SentBySystemTrigger,
	})

	triggersFiredTotal.Inc()

	if !result.Success {
		a.logger.
			WithField("trigger", trigger.ID).
			WithField("template", trigger.TemplateID).
			WithField("recipient", recipient).
			Error("trigger send failed: " + result.Error)
	}

	now := time.Now()
	trigger.LastTriggered = &now
	trigger.SendCount++

	if err := a.triggerRepo.Update(trigger); err != nil {
		a.logger.
			WithField("trigger", trigger.ID).
			WithError(err).
			Error("failed to update trigger statistics")
	}
}

// recipientOf reads the destination address off the document. Absent, nil
// or blank values all resolve to "".
func recipientOf(document map[string]interface{}, field string) string {
	if field == "" {
		return ""
	}

	value, ok := document[field]
	if !ok || value == nil {
		return ""
	}

	return strings.TrimSpace(Stringify(value))
}

type sendOptions struct {
	TriggerID  string
	DocumentID string
	Collection string
	SentBy     string
}

// sendOne is the shared send primitive behind the dispatcher and the
// manual/bulk administrative paths. It writes exactly one log entry per
// attempt and never returns a Go error for expected failure modes; a failed
// log write itself is reported to operational logging only, so it can
// neither block nor duplicate the send decision already taken.
func (a *application) sendOne(ctx context.Context, templateID, recipient string, data map[string]interface{}, opts sendOptions) (result SendResult) {
	entry := &LogEntry{
		ID:         uuid.New().String(),
		TriggerID:  opts.TriggerID,
		TemplateID: templateID,
		Recipient:  recipient,
		SentAt:     time.Now(),
		SentBy:     opts.SentBy,
		DocumentID: opts.DocumentID,
		Collection: opts.Collection,
	}

	defer func() {
		if r := recover(); r != nil {
			result = SendResult{Error: fmt.Sprintf("panic during send: %v", r)}

			if entry.Status == "" {
				entry.Status = StatusFailed
				entry.Error = result.Error
				if entry.Subject == "" {
					entry.Subject = "Failed to render"
				}

				a.appendLog(entry)
				emailFailuresTotal.Inc()
			}
		}
	}()

	template, err := a.templateRepo.Get(templateID)
	if err != nil {
		if err == TemplateNotFoundErr {
			result.Error = fmt.Sprintf("Template not found: %s", templateID)
		} else {
			result.Error = err.Error()
		}

		entry.Status = StatusFailed
		entry.Subject = "Failed to render"
		entry.Error = result.Error

		a.appendLog(entry)
		emailFailuresTotal.Inc()

		return result
	}

	subject := Render(template.Subject, data)
	html := a.layout(Render(template.Body, data))

	entry.TemplateName = template.Name
	entry.Subject = subject

	sendCtx := ctx
	if a.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, a.sendTimeout)
		defer cancel()
	}

	if err := a.transport.Send(sendCtx, recipient, subject, html); err != nil {
		result.Error = err.Error()

		entry.Status = StatusFailed
		entry.Error = result.Error

		a.appendLog(entry)
		emailFailuresTotal.Inc()

		return result
	}

	result.Success = true
	entry.Status = StatusSent

	a.appendLog(entry)
	emailsSentTotal.Inc()

	return result
}

func (a *application) appendLog(entry *LogEntry) {
	if err := a.logRepo.Create(entry); err != nil {
		a.logger.
			WithField("recipient", entry.Recipient).
			WithField("template", entry.TemplateID).
			WithError(err).
			Error("failed to append send log entry")
	}
}
