package tickets

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScan(t *testing.T) {
	ticketID := uuid.MustParse("3f2b8c1e-9a4d-4e6f-8b21-5c7d9e0a1b2c")
	eventID := uuid.MustParse("a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d")

	cases := []struct {
		name  string
		input string
		want  scan
	}{
		{"bare id", ticketID.String(), scan{TicketID: ticketID}},
		{"braced id", "{" + ticketID.String() + "}", scan{TicketID: ticketID}},
		{"urn id", "urn:uuid:" + ticketID.String(), scan{TicketID: ticketID}},
		{"payload", `{"ticketId":"` + ticketID.String() + `","eventId":"` + eventID.String() + `","verificationToken":"0123456789abcdef"}`,
			scan{TicketID: ticketID, EventID: &eventID, Token: "0123456789abcdef"}},
		{"payload without event", `  {"ticketId":"` + ticketID.String() + `"}  `, scan{TicketID: ticketID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseScan(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseScan_Malformed(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"not-a-ticket",
		"{not json",
		`{"ticketId":"nope"}`,
		`{"ticketId":"3f2b8c1e-9a4d-4e6f-8b21-5c7d9e0a1b2c","eventId":"bad"}`,
	} {
		_, err := parseScan(input)
		assert.ErrorIs(t, err, errMalformedInput, "input %q", input)
	}
}
