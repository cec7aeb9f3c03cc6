package webhookform

import "smack-integrations/models"

const (
	MaxDisplayNameLength = 64
	MaxDescriptionLength = 128
)

type Label = models.Label

var ChannelRequiredLabel = Label{
	ID:          "add_incoming_webhook.channelRequired",
	DefaultText: "A valid channel is required",
}

// Draft is the in-progress form data for an incoming webhook.
type Draft struct {
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	ChannelID   string `json:"channel_id"`
}

// Payload is the immutable request handed to an Action on submit.
type Payload struct {
	ChannelID   string `json:"channel_id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

func (d Draft) payload() Payload {
	return Payload{
		ChannelID:   d.ChannelID,
		DisplayName: d.DisplayName,
		Description: d.Description,
	}
}

// State is a point-in-time copy of the controller.
type State struct {
	Draft       Draft   `json:"draft"`
	Saving      bool    `json:"saving"`
	ServerError string  `json:"server_error,omitempty"`
	ClientError *Label  `json:"client_error,omitempty"`
	Result      *Result `json:"result,omitempty"`
}
