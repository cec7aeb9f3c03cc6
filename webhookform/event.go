package webhookform

import "errors"

var ErrUnknownField = errors.New("webhookform: unknown field")

type Field string

const (
	FieldDisplayName Field = "display_name"
	FieldDescription Field = "description"
	FieldChannelID   Field = "channel_id"
)

// FieldChanged is emitted by an input each time its value changes.
type FieldChanged struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Reduce applies a single field change to a draft. No validation happens
// here; the value replaces the previous one as-is.
func Reduce(d Draft, ev FieldChanged) (Draft, error) {
	switch ev.Field {
	case FieldDisplayName:
		d.DisplayName = ev.Value
	case FieldDescription:
		d.Description = ev.Value
	case FieldChannelID:
		d.ChannelID = ev.Value
	default:
		return d, ErrUnknownField
	}
	return d, nil
}
