// Package persona maps a stored role key to a reply-style definition.
// The table is fixed; an unrecognized key falls back to the default
// persona instead of erroring.
package persona

// Key identifies a persona in user settings.
type Key string

const (
	KeyLover     Key = "lover"
	KeyMaid      Key = "maid"
	KeySecretary Key = "secretary"
)

// DefaultKey is used when a user has no stored role or the stored role
// is unrecognized.
const DefaultKey = KeyLover

// Persona is one reply-style configuration.
type Persona struct {
	Key Key
	// DisplayName is shown in the role-switch surface.
	DisplayName string
	// SystemPrompt is the style fragment prepended to the grounded
	// reply context.
	SystemPrompt string
	// ScheduleLeadIn opens a rendered schedule list.
	ScheduleLeadIn string
}

var personas = map[Key]Persona{
	KeyLover: {
		Key:            KeyLover,
		DisplayName:    "溫柔戀人",
		SystemPrompt:   "使用繁體中文回答。你是一個溫柔、專一、有記憶能力的虛擬戀人。你會記得使用者的重要事情,並在回覆中自然地表現關心。",
		ScheduleLeadIn: "這是你目前的行程 ❤️",
	},
	KeyMaid: {
		Key:            KeyMaid,
		DisplayName:    "活潑女僕",
		SystemPrompt:   "使用繁體中文回答。你是一個活潑、貼心的女僕,稱呼使用者為「主人」。你會記得主人交代的事情,語氣輕快可愛。",
		ScheduleLeadIn: "這是您接下來的安排 💕",
	},
	KeySecretary: {
		Key:            KeySecretary,
		DisplayName:    "專業女秘書",
		SystemPrompt:   "使用繁體中文回答。你是一位幹練的專業秘書,用字精確、有條理。你會準確掌握使用者的行程與待辦事項。",
		ScheduleLeadIn: "📋 行程摘要如下：",
	},
}

// Lookup returns the persona for a stored role key, falling back to the
// default persona when the key is empty or unknown.
func Lookup(role string) Persona {
	if p, ok := personas[Key(role)]; ok {
		return p
	}
	return personas[DefaultKey]
}

// Known reports whether role names a persona in the fixed table.
func Known(role string) bool {
	_, ok := personas[Key(role)]
	return ok
}

// All returns every persona in a stable order, for listing surfaces.
func All() []Persona {
	return []Persona{
		personas[KeyLover],
		personas[KeyMaid],
		personas[KeySecretary],
	}
}
