package channels

import "github.com/aura-webinar/privatevc/internal/models"

// visible reports whether a member sees c in the channel list: public
// channels are listed for everyone, private ones only with a grant.
func visible(c *models.Channel, granted bool) bool {
	return !c.Private || granted
}

// canConnect decides whether a member may join c. Display channels refuse
// every connection; private voice channels need a grant.
func canConnect(c *models.Channel, granted bool) error {
	if c.Kind != models.ChannelKindVoice {
		return ErrNotConnectable
	}
	if !visible(c, granted) {
		return ErrAccessDenied
	}
	return nil
}
