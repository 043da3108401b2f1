package notification

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventMessage(t *testing.T) {
	at := time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC)
	msg, err := eventMessage(Event{Kind: KindStudentUpdated, StudentID: 42, Login: "ali", OccurredAt: at})
	require.NoError(t, err)

	require.Equal(t, "42", string(msg.Key))
	require.Equal(t, at, msg.Time)
	require.JSONEq(t, `{"kind":"student.updated","student_id":42,"login":"ali","occurred_at":"2024-09-01T08:30:00Z"}`, string(msg.Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, KindStudentUpdated, decoded.Kind)
}

func TestEventMessageOmitsEmptyLogin(t *testing.T) {
	msg, err := eventMessage(Event{Kind: KindStudentDeleted, StudentID: 7})
	require.NoError(t, err)
	require.Equal(t, "7", string(msg.Key))
	require.NotContains(t, string(msg.Value), `"login"`)
}

