package integrations

import (
	"sort"
	"strings"

	"github.com/asaskevich/govalidator"

	"smack-integrations/webhookform"
)

// hookRequest mirrors webhookform.Payload with the persistence rules the
// server enforces on every save.
type hookRequest struct {
	ChannelID   string `valid:"required~A valid channel is required"`
	DisplayName string `valid:"runelength(0|64)~Display name must be 64 characters or fewer"`
	Description string `valid:"runelength(0|128)~Description must be 128 characters or fewer"`
}

func newHookRequest(hook webhookform.Payload) *hookRequest {
	return &hookRequest{
		ChannelID:   strings.TrimSpace(hook.ChannelID),
		DisplayName: hook.DisplayName,
		Description: hook.Description,
	}
}

// ValidationError carries the messages of every rule a request broke.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validate(dst interface{}) error {
	_, err := govalidator.ValidateStruct(dst)
	if err == nil {
		return nil
	}

	var messages []string
	for _, message := range govalidator.ErrorsByField(err) {
		messages = append(messages, message)
	}
	sort.Strings(messages)
	return &ValidationError{Message: strings.Join(messages, ", ")}
}
