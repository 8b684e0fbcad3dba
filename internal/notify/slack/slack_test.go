package slack

import (
	"context"
	"errors"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/mentortrack/internal/notify"
)

type mockClient struct {
	calls    int
	channels []string
	options  [][]slackapi.MsgOption
	errs     []error
}

func (m *mockClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.calls++
	m.channels = append(m.channels, channelID)
	m.options = append(m.options, options)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", "", err
	}
	return channelID, "1700000000.000100", nil
}

func sampleMessage() notify.Message {
	return notify.Message{
		Text: "MentorTrack progress digest: 1 product group(s) need attention",
		Items: []notify.Item{{
			Title:  "Taro / Backpacks",
			Body:   "Sample approved for 30 days",
			Color:  "#d9534f",
			Fields: []notify.Field{{Name: "Status", Value: "danger", Short: true}},
		}},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Opts{ChannelID: "C1"})
	assert.ErrorContains(t, err, "bot token is required")

	_, err = New(Opts{BotToken: "xoxb-test"})
	assert.ErrorContains(t, err, "channel id is required")

	n, err := New(Opts{BotToken: "xoxb-test", ChannelID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, "slack", n.Name())
}

func TestSend_PostsAttachments(t *testing.T) {
	mock := &mockClient{}
	n, err := New(Opts{ChannelID: "C123", Client: mock})
	require.NoError(t, err)

	require.NoError(t, n.Send(context.Background(), sampleMessage()))
	require.Equal(t, 1, mock.calls)
	assert.Equal(t, "C123", mock.channels[0])

	assert.Len(t, mock.options[0], 2, "text + attachments")
}

func TestItemToAttachment(t *testing.T) {
	att := itemToAttachment(sampleMessage().Items[0])
	assert.Equal(t, "Taro / Backpacks", att.Title)
	assert.Equal(t, "Sample approved for 30 days", att.Text)
	assert.Equal(t, "#d9534f", att.Color)
	assert.Equal(t, "Taro / Backpacks", att.Fallback)
	require.Len(t, att.Fields, 1)
	assert.Equal(t, "Status", att.Fields[0].Title)
	assert.Equal(t, "danger", att.Fields[0].Value)
	assert.True(t, att.Fields[0].Short)
}

func TestSend_RetriesRateLimit(t *testing.T) {
	mock := &mockClient{errs: []error{&slackapi.RateLimitedError{RetryAfter: time.Millisecond}}}
	n, err := New(Opts{ChannelID: "C123", Client: mock})
	require.NoError(t, err)

	require.NoError(t, n.Send(context.Background(), sampleMessage()))
	assert.Equal(t, 2, mock.calls)
}

func TestSend_PropagatesError(t *testing.T) {
	mock := &mockClient{errs: []error{errors.New("channel_not_found")}}
	n, err := New(Opts{ChannelID: "C123", Client: mock})
	require.NoError(t, err)

	err = n.Send(context.Background(), sampleMessage())
	assert.ErrorContains(t, err, "channel_not_found")
	assert.Equal(t, 1, mock.calls)
}

func TestBuildMessageOptions_NoItems(t *testing.T) {
	opts := buildMessageOptions(notify.Message{Text: "all good"})
	assert.Len(t, opts, 1)
}
