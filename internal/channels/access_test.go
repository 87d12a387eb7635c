package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aura-webinar/privatevc/internal/models"
)

func TestChannelAccessRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		kind       string
		private    bool
		granted    bool
		listed     bool
		connectErr error
	}{
		{name: "public voice", kind: models.ChannelKindVoice, listed: true},
		{name: "public voice with grant", kind: models.ChannelKindVoice, granted: true, listed: true},
		{name: "private voice with grant", kind: models.ChannelKindVoice, private: true, granted: true, listed: true},
		{name: "private voice without grant", kind: models.ChannelKindVoice, private: true, connectErr: ErrAccessDenied},
		{name: "display", kind: models.ChannelKindDisplay, listed: true, connectErr: ErrNotConnectable},
		{name: "display with grant", kind: models.ChannelKindDisplay, granted: true, listed: true, connectErr: ErrNotConnectable},
		{name: "private display without grant", kind: models.ChannelKindDisplay, private: true, connectErr: ErrNotConnectable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &models.Channel{Kind: tc.kind, Private: tc.private}
			assert.Equal(t, tc.listed, visible(c, tc.granted))
			err := canConnect(c, tc.granted)
			if tc.connectErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.connectErr)
			}
		})
	}
}
