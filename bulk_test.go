package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecipients(t *testing.T) {
	csv := strings.Join([]string{
		"Email,FirstName,BikeModel",
		"a@x.com,Ana,Africa Twin",
		"b@x.com,Bo,Tenere 700",
	}, "\n")

	recipients, err := ParseRecipients(strings.NewReader(csv), 0)

	require.NoError(t, err)
	require.Len(t, recipients, 2)

	assert.Equal(t, "a@x.com", recipients[0].Email)
	assert.Equal(t, "Ana", recipients[0].Data["FirstName"])
	assert.Equal(t, "Africa Twin", recipients[0].Data["BikeModel"])
	assert.NotContains(t, recipients[0].Data, "Email")
}

func TestParseRecipientsCaseInsensitiveEmailColumn(t *testing.T) {
	csv := "email,Name\nc@x.com,Cy\n"

	recipients, err := ParseRecipients(strings.NewReader(csv), 0)

	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "c@x.com", recipients[0].Email)
}

func TestParseRecipientsSkipsBlankAndMalformedRows(t *testing.T) {
	csv := strings.Join([]string{
		"Email,Name",
		",NoAddress",
		"d@x.com,Di",
	}, "\n")

	recipients, err := ParseRecipients(strings.NewReader(csv), 0)

	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "d@x.com", recipients[0].Email)
}

func TestParseRecipientsHonoursRowCap(t *testing.T) {
	rows := []string{"Email,Name"}
	for i := 0; i < 10; i++ {
		rows = append(rows, "user@x.com,User")
	}

	recipients, err := ParseRecipients(strings.NewReader(strings.Join(rows, "\n")), 3)

	require.NoError(t, err)
	assert.Len(t, recipients, 3)
}

func TestParseRecipientsRequiresEmailColumn(t *testing.T) {
	_, err := ParseRecipients(strings.NewReader("Name,Phone\nAna,555\n"), 0)
	assert.Error(t, err)
}

func TestParseRecipientsRequiresData(t *testing.T) {
	_, err := ParseRecipients(strings.NewReader("Email,Name\n"), 0)
	assert.Error(t, err)
}
