package models

// Label is a localizable text descriptor. The message lookup happens on the
// client; DefaultText is used when no translation exists.
type Label struct {
	ID          string `json:"id"`
	DefaultText string `json:"default_text"`
}
