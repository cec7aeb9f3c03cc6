// Package emoji describes the preview pane shown at the bottom of the emoji
// picker.
package emoji

import "smack-integrations/models"

const spriteURL = "/static/emoji/img_trans.gif"

// ImageURLer resolves the image of a custom emoji.
type ImageURLer interface {
	ImageURL(e *models.Emoji) string
}

type ImageURLFunc func(e *models.Emoji) string

func (f ImageURLFunc) ImageURL(e *models.Emoji) string { return f(e) }

type Image struct {
	Src       string `json:"src"`
	ClassName string `json:"class_name"`
	Sprite    bool   `json:"sprite"`
}

type PreviewView struct {
	Placeholder bool          `json:"placeholder"`
	Name        string        `json:"name,omitempty"`
	Shortcode   string        `json:"shortcode,omitempty"`
	Aliases     []string      `json:"aliases,omitempty"`
	Image       *Image        `json:"image,omitempty"`
	Title       *models.Label `json:"title,omitempty"`
	Close       *models.Label `json:"close,omitempty"`
}

// Preview describes e. A nil emoji yields the idle placeholder with a close
// action.
func Preview(e *models.Emoji, urls ImageURLer) PreviewView {
	if e == nil {
		return PreviewView{
			Placeholder: true,
			Title:       &models.Label{ID: "emoji_picker.emojiPicker", DefaultText: "Emoji Picker"},
			Close:       &models.Label{ID: "emoji_picker.close", DefaultText: "Close"},
		}
	}

	var v PreviewView
	if e.IsSystem() {
		v.Name = e.Aliases[0]
		v.Aliases = e.Aliases
		v.Image = &Image{
			Src:       spriteURL,
			ClassName: "emojisprite-preview emoji-" + e.Filename,
			Sprite:    true,
		}
	} else {
		v.Name = e.Name
		v.Aliases = []string{e.Name}
		v.Image = &Image{
			Src:       urls.ImageURL(e),
			ClassName: "emoji-picker__preview-image",
		}
	}
	v.Shortcode = ":" + v.Aliases[0] + ":"
	return v
}
