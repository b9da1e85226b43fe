package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestDispatcher(t *testing.T) {
	suite.Run(t, new(dispatcherTestSuite))
}

type dispatcherTestSuite struct {
	suite.Suite

	templates *templateRepository
	triggers  *triggerRepository
	logs      *logRepository
	transport *recordingTransport

	app Application
}

func (suite *dispatcherTestSuite) SetupTest() {
	suite.templates = &templateRepository{templates: map[string]Template{
		"welcome": {
			ID:      "welcome",
			Name:    "Welcome",
			Subject: "Hi {{name}}",
			Body:    "Welcome, {{name}}!",
		},
	}}
	suite.triggers = &triggerRepository{}
	suite.logs = &logRepository{}
	suite.transport = &recordingTransport{}

	app, err := NewApplication(
		SetTemplateRepo(suite.templates),
		SetTriggerRepo(suite.triggers),
		SetLogRepo(suite.logs),
		SetEmailTransport(suite.transport),
	)
	suite.Require().NoError(err)

	suite.app = app
}

func (suite *dispatcherTestSuite) registrationTrigger(id string) Trigger {
	return Trigger{
		ID:             id,
		Name:           "welcome on registration",
		Enabled:        true,
		TemplateID:     "welcome",
		Collection:     "registrations",
		Event:          EventCreate,
		RecipientField: "email",
		DataMapping:    map[string]string{"name": "fullName"},
	}
}

func (suite *dispatcherTestSuite) registrationEvent(document map[string]interface{}) ChangeEvent {
	return ChangeEvent{
		Collection: "registrations",
		Kind:       EventCreate,
		DocumentID: "doc-1",
		Document:   document,
	}
}

func (suite *dispatcherTestSuite) TestDispatchSendsAndLogs() {
	suite.triggers.triggers = []Trigger{suite.registrationTrigger("t1")}

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email":    "a@x.com",
		"fullName": "Ana Ruiz",
	}))

	suite.Require().NoError(err)

	suite.Require().Len(suite.transport.sent, 1)
	assert.Equal(suite.T(), "a@x.com", suite.transport.sent[0].to)
	assert.Equal(suite.T(), "Hi Ana Ruiz", suite.transport.sent[0].subject)

	suite.Require().Len(suite.logs.entries, 1)
	entry := suite.logs.entries[0]
	assert.Equal(suite.T(), StatusSent, entry.Status)
	assert.Equal(suite.T(), "Hi Ana Ruiz", entry.Subject)
	assert.Equal(suite.T(), "a@x.com", entry.Recipient)
	assert.Equal(suite.T(), "t1", entry.TriggerID)
	assert.Equal(suite.T(), "doc-1", entry.DocumentID)
	assert.Equal(suite.T(), "registrations", entry.Collection)
	assert.Equal(suite.T(), SentBySystemTrigger, entry.SentBy)

	suite.Require().Len(suite.triggers.updated, 1)
	assert.Equal(suite.T(), int64(1), suite.triggers.updated[0].SendCount)
	assert.NotNil(suite.T(), suite.triggers.updated[0].LastTriggered)
}

func (suite *dispatcherTestSuite) TestMissingRecipientSkipsSilently() {
	suite.triggers.triggers = []Trigger{suite.registrationTrigger("t1")}

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"fullName": "Ana Ruiz",
	}))

	suite.Require().NoError(err)
	assert.Empty(suite.T(), suite.transport.sent)
	assert.Empty(suite.T(), suite.logs.entries)
	assert.Empty(suite.T(), suite.triggers.updated)
}

func (suite *dispatcherTestSuite) TestFailedConditionSkipsSilently() {
	trigger := suite.registrationTrigger("t1")
	trigger.Conditions = []Condition{
		{Field: "status", Operator: OpEquals, Value: "confirmed"},
	}
	suite.triggers.triggers = []Trigger{trigger}

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"status": "pending",
		"email":  "b@x.com",
	}))

	suite.Require().NoError(err)
	assert.Empty(suite.T(), suite.transport.sent)
	assert.Empty(suite.T(), suite.logs.entries)
	assert.Empty(suite.T(), suite.triggers.updated)
}

func (suite *dispatcherTestSuite) TestDisabledTriggerNeverFires() {
	trigger := suite.registrationTrigger("t1")
	trigger.Enabled = false
	suite.triggers.triggers = []Trigger{trigger}

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email":    "a@x.com",
		"fullName": "Ana Ruiz",
	}))

	suite.Require().NoError(err)
	assert.Empty(suite.T(), suite.transport.sent)
	assert.Empty(suite.T(), suite.logs.entries)
}

func (suite *dispatcherTestSuite) TestFailureIsolatedPerTrigger() {
	broken := suite.registrationTrigger("broken")
	broken.TemplateID = "nope"

	working := suite.registrationTrigger("working")

	suite.triggers.triggers = []Trigger{broken, working}

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email":    "a@x.com",
		"fullName": "Ana Ruiz",
	}))

	suite.Require().NoError(err)

	suite.Require().Len(suite.logs.entries, 2)

	failed := suite.logs.entries[0]
	assert.Equal(suite.T(), StatusFailed, failed.Status)
	assert.Equal(suite.T(), "Template not found: nope", failed.Error)
	assert.Equal(suite.T(), "Failed to render", failed.Subject)
	assert.Equal(suite.T(), "broken", failed.TriggerID)

	sent := suite.logs.entries[1]
	assert.Equal(suite.T(), StatusSent, sent.Status)
	assert.Equal(suite.T(), "working", sent.TriggerID)

	// both triggers count the attempt
	suite.Require().Len(suite.triggers.updated, 2)
	assert.Equal(suite.T(), int64(1), suite.triggers.updated[0].SendCount)
	assert.Equal(suite.T(), int64(1), suite.triggers.updated[1].SendCount)
}

func (suite *dispatcherTestSuite) TestProviderFailureStillCountsAttempt() {
	trigger := suite.registrationTrigger("t1")
	trigger.SendCount = 5
	suite.triggers.triggers = []Trigger{trigger}

	suite.transport.err = errors.New("provider unavailable")

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email":    "a@x.com",
		"fullName": "Ana Ruiz",
	}))

	suite.Require().NoError(err)

	suite.Require().Len(suite.logs.entries, 1)
	assert.Equal(suite.T(), StatusFailed, suite.logs.entries[0].Status)
	assert.Equal(suite.T(), "provider unavailable", suite.logs.entries[0].Error)

	suite.Require().Len(suite.triggers.updated, 1)
	assert.Equal(suite.T(), int64(6), suite.triggers.updated[0].SendCount)
}

func (suite *dispatcherTestSuite) TestNoTriggersIsANoOp() {
	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email": "a@x.com",
	}))

	suite.Require().NoError(err)
	assert.Empty(suite.T(), suite.transport.sent)
	assert.Empty(suite.T(), suite.logs.entries)
}

func (suite *dispatcherTestSuite) TestTriggerLoadFailureSurfaces() {
	suite.triggers.findErr = errors.New("store down")

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(nil))

	assert.Error(suite.T(), err)
}

func (suite *dispatcherTestSuite) TestMaxTriggersPerEventCapsTheLoop() {
	app, err := NewApplication(
		SetTemplateRepo(suite.templates),
		SetTriggerRepo(suite.triggers),
		SetLogRepo(suite.logs),
		SetEmailTransport(suite.transport),
		SetMaxTriggersPerEvent(2),
	)
	suite.Require().NoError(err)

	suite.triggers.triggers = []Trigger{
		suite.registrationTrigger("t1"),
		suite.registrationTrigger("t2"),
		suite.registrationTrigger("t3"),
	}

	err = app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email":    "a@x.com",
		"fullName": "Ana Ruiz",
	}))

	suite.Require().NoError(err)
	assert.Len(suite.T(), suite.transport.sent, 2)
	assert.Len(suite.T(), suite.logs.entries, 2)
}

func (suite *dispatcherTestSuite) TestLogWriteFailureDoesNotBlockDispatch() {
	suite.triggers.triggers = []Trigger{suite.registrationTrigger("t1")}
	suite.logs.createErr = errors.New("log store down")

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email":    "a@x.com",
		"fullName": "Ana Ruiz",
	}))

	suite.Require().NoError(err)

	// the send happened and the attempt was counted even though the audit
	// write failed
	assert.Len(suite.T(), suite.transport.sent, 1)
	suite.Require().Len(suite.triggers.updated, 1)
	assert.Equal(suite.T(), int64(1), suite.triggers.updated[0].SendCount)
}

func (suite *dispatcherTestSuite) TestComputedDataMapping() {
	trigger := suite.registrationTrigger("t1")
	trigger.DataMapping = map[string]string{
		"name": "fullName",
		"bike": "{{bikeYear}} {{bikeModel}}",
	}
	suite.templates.templates["welcome"] = Template{
		ID:      "welcome",
		Name:    "Welcome",
		Subject: "Hi {{name}}",
		Body:    "See you on the {{bike}}.",
	}
	suite.triggers.triggers = []Trigger{trigger}

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email":     "a@x.com",
		"fullName":  "Ana Ruiz",
		"bikeYear":  "2019",
		"bikeModel": "Africa Twin",
	}))

	suite.Require().NoError(err)
	suite.Require().Len(suite.transport.sent, 1)
	assert.Contains(suite.T(), suite.transport.sent[0].html, "See you on the 2019 Africa Twin.")
}

func (suite *dispatcherTestSuite) TestStatisticsUpdateUsesWallClock() {
	suite.triggers.triggers = []Trigger{suite.registrationTrigger("t1")}

	before := time.Now()

	err := suite.app.HandleEvent(context.Background(), suite.registrationEvent(map[string]interface{}{
		"email":    "a@x.com",
		"fullName": "Ana Ruiz",
	}))

	suite.Require().NoError(err)
	suite.Require().Len(suite.triggers.updated, 1)

	triggered := suite.triggers.updated[0].LastTriggered
	suite.Require().NotNil(triggered)
	assert.False(suite.T(), triggered.Before(before))
	assert.False(suite.T(), triggered.After(time.Now()))
}
