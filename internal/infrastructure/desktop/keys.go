package desktop

import "strings"

// keyAliases maps the key names used in config and scripts to robotgo's.
var keyAliases = map[string]string{
	"lcontrol": "lctrl",
	"rcontrol": "rctrl",
	"control":  "ctrl",
	"return":   "enter",
	"del":      "delete",
	"escape":   "esc",
	"spacebar": "space",
	"lmenu":    "lalt",
	"rmenu":    "ralt",
}

// keyName normalises a key for robotgo: lower case, aliases resolved.
func keyName(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}
