package emoji

import "smack-integrations/models"

// system is the subset of built-in emoji the server knows by alias.
var system = []models.Emoji{
	{Aliases: []string{"+1", "thumbsup"}, Filename: "1f44d"},
	{Aliases: []string{"-1", "thumbsdown"}, Filename: "1f44e"},
	{Aliases: []string{"smile"}, Filename: "1f604"},
	{Aliases: []string{"tada"}, Filename: "1f389"},
	{Aliases: []string{"heart"}, Filename: "2764"},
	{Aliases: []string{"eyes"}, Filename: "1f440"},
	{Aliases: []string{"rocket"}, Filename: "1f680"},
	{Aliases: []string{"white_check_mark"}, Filename: "2705"},
	{Aliases: []string{"x"}, Filename: "274c"},
	{Aliases: []string{"warning"}, Filename: "26a0"},
}

var systemByAlias = func() map[string]*models.Emoji {
	m := make(map[string]*models.Emoji)
	for i := range system {
		for _, a := range system[i].Aliases {
			m[a] = &system[i]
		}
	}
	return m
}()

// LookupSystem finds a built-in emoji by any of its aliases.
func LookupSystem(alias string) (*models.Emoji, bool) {
	e, ok := systemByAlias[alias]
	return e, ok
}
