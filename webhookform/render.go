package webhookform

import "fmt"

type FieldKind string

const (
	KindText          FieldKind = "text"
	KindChannelSelect FieldKind = "channel_select"
)

// View is a renderer-agnostic description of the form page.
type View struct {
	Breadcrumb Link        `json:"breadcrumb"`
	Header     Label       `json:"header"`
	Fields     []FieldView `json:"fields"`
	Errors     []ErrorView `json:"errors"`
	Cancel     Link        `json:"cancel"`
	Submit     ButtonView  `json:"submit"`
	Result     *Result     `json:"result,omitempty"`
}

type Link struct {
	To    string `json:"to"`
	Label Label  `json:"label"`
}

type FieldView struct {
	ID        string    `json:"id"`
	Kind      FieldKind `json:"kind"`
	Label     Label     `json:"label"`
	Help      Label     `json:"help"`
	Value     string    `json:"value"`
	MaxLength int       `json:"max_length,omitempty"`

	// Channel select options
	SelectOpen    bool `json:"select_open,omitempty"`
	SelectPrivate bool `json:"select_private,omitempty"`
}

// ErrorView is either a verbatim message from the server or a label.
type ErrorView struct {
	Message string `json:"message,omitempty"`
	Label   *Label `json:"label,omitempty"`
}

type ButtonView struct {
	Label    Label `json:"label"`
	Spinning bool  `json:"spinning"`
}

func listPath(team string) string {
	return fmt.Sprintf("/%s/integrations/incoming_webhooks", team)
}

// Render describes the form for the given team using the current state.
func (c *Controller) Render(team string) View {
	st := c.State()

	v := View{
		Breadcrumb: Link{
			To:    listPath(team),
			Label: Label{ID: "installed_incoming_webhooks.header", DefaultText: "Incoming Webhooks"},
		},
		Header: c.Header(),
		Fields: []FieldView{
			{
				ID:        "displayName",
				Kind:      KindText,
				Label:     Label{ID: "add_incoming_webhook.displayName", DefaultText: "Display Name"},
				Help:      Label{ID: "add_incoming_webhook.displayName.help", DefaultText: "Display name for your incoming webhook made of up to 64 characters."},
				Value:     st.Draft.DisplayName,
				MaxLength: MaxDisplayNameLength,
			},
			{
				ID:        "description",
				Kind:      KindText,
				Label:     Label{ID: "add_incoming_webhook.description", DefaultText: "Description"},
				Help:      Label{ID: "add_incoming_webhook.description.help", DefaultText: "Description for your incoming webhook."},
				Value:     st.Draft.Description,
				MaxLength: MaxDescriptionLength,
			},
			{
				ID:            "channelId",
				Kind:          KindChannelSelect,
				Label:         Label{ID: "add_incoming_webhook.channel", DefaultText: "Channel"},
				Help:          Label{ID: "add_incoming_webhook.channel.help", DefaultText: "Public or private channel that receives the webhook payloads. You must belong to the private channel when setting up the webhook."},
				Value:         st.Draft.ChannelID,
				SelectOpen:    true,
				SelectPrivate: true,
			},
		},
		Errors: []ErrorView{},
		Cancel: Link{
			To:    listPath(team),
			Label: Label{ID: "add_incoming_webhook.cancel", DefaultText: "Cancel"},
		},
		Submit: ButtonView{
			Label:    c.Footer(),
			Spinning: st.Saving,
		},
	}

	if st.ServerError != "" {
		v.Errors = append(v.Errors, ErrorView{Message: st.ServerError})
	}
	if st.ClientError != nil {
		v.Errors = append(v.Errors, ErrorView{Label: st.ClientError})
	}
	v.Result = st.Result
	return v
}
