package keymap

import (
	"reflect"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines a set of keybindings. To work for help it must satisfy
// key.Map. It could also very easily be a map[string]key.Binding.
type KeyMap struct {
	// Navigation Group
	JointNextKey   key.Binding `group:"Navigation"`
	JointPrevKey   key.Binding `group:"Navigation"`
	PoseUpKey      key.Binding `group:"Navigation"`
	PoseDownKey    key.Binding `group:"Navigation"`
	LogUpKey       key.Binding `group:"Navigation"`
	LogDownKey     key.Binding `group:"Navigation"`
	LogLeftKey     key.Binding `group:"Navigation"`
	LogRightKey    key.Binding `group:"Navigation"`
	LogUpFastKey   key.Binding `group:"Navigation"`
	LogDownFastKey key.Binding `group:"Navigation"`
	LogTopKey      key.Binding `group:"Navigation"`
	LogBottomKey   key.Binding `group:"Navigation"`

	// Arm Group
	AngleUpKey       key.Binding `group:"Arm"`
	AngleDownKey     key.Binding `group:"Arm"`
	AngleUpFastKey   key.Binding `group:"Arm"`
	AngleDownFastKey key.Binding `group:"Arm"`
	HomeAllKey       key.Binding `group:"Arm"`
	SendKey          key.Binding `group:"Arm"`

	// Actions Group
	ToggleSessionKey key.Binding `group:"Actions"`
	NextPortKey      key.Binding `group:"Actions"`
	OpenEditorKey    key.Binding `group:"Actions"`
	ClearLogKey      key.Binding `group:"Actions"`
	DeletePoseKey    key.Binding `group:"Actions"`
	ResetKey         key.Binding `group:"Actions"`
	HelpKey          key.Binding `group:"Actions"`
	QuitKey          key.Binding `group:"Actions"`
	CloseKey         key.Binding `group:"Actions"`
}

// ShortHelp returns keybindings to be shown in the mini help view. It's part
// of the key.Map interface.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.HelpKey, k.QuitKey, k.ToggleSessionKey, k.HomeAllKey}
}

// FullHelp returns keybindings for the expanded help view. It's part of the
// key.Map interface.
func (k KeyMap) FullHelp() [][]key.Binding {
	var (
		navigation []key.Binding
		arm        []key.Binding
		actions    []key.Binding
		other      []key.Binding // For keys without a tag
	)

	v := reflect.ValueOf(k)
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		fieldType := t.Field(i)

		// Ensure the field is a key.Binding
		if binding, ok := fieldVal.Interface().(key.Binding); ok {
			switch fieldType.Tag.Get("group") {
			case "Navigation":
				navigation = append(navigation, binding)
			case "Arm":
				arm = append(arm, binding)
			case "Actions":
				actions = append(actions, binding)
			default:
				other = append(other, binding)
			}
		}
	}

	groups := [][]key.Binding{navigation, arm, actions}
	if len(other) > 0 {
		groups = append(groups, other)
	}
	return groups
}

// Default contains the default keybindings for the application.
var Default = KeyMap{
	JointNextKey: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next joint"),
	),
	JointPrevKey: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous joint"),
	),
	PoseUpKey: key.NewBinding(
		key.WithKeys("up", "ctrl+k"),
		key.WithHelp("↑/ctrl+k", "scroll poses"),
	),
	PoseDownKey: key.NewBinding(
		key.WithKeys("down", "ctrl+j"),
		key.WithHelp("↓/ctrl+j", "scroll poses"),
	),
	LogUpKey: key.NewBinding(
		key.WithKeys("ctrl+up", "alt+k"),
		key.WithHelp("ctrl+↑/alt+k", "scroll log up"),
	),
	LogDownKey: key.NewBinding(
		key.WithKeys("ctrl+down", "alt+j"),
		key.WithHelp("ctrl+↓/alt+j", "scroll log down"),
	),
	LogLeftKey: key.NewBinding(
		key.WithKeys("ctrl+left", "alt+h"),
		key.WithHelp("ctrl+left/alt+h", "scroll log left"),
	),
	LogRightKey: key.NewBinding(
		key.WithKeys("ctrl+right", "alt+l"),
		key.WithHelp("ctrl+right/alt+l", "scroll log right"),
	),
	LogUpFastKey: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "scroll log up fast"),
	),
	LogDownFastKey: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "scroll log down fast"),
	),
	LogTopKey: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "log goto top"),
	),
	LogBottomKey: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("end", "log goto bottom"),
	),
	AngleUpKey: key.NewBinding(
		key.WithKeys("shift+right"),
		key.WithHelp("shift+→", "angle +1°"),
	),
	AngleDownKey: key.NewBinding(
		key.WithKeys("shift+left"),
		key.WithHelp("shift+←", "angle -1°"),
	),
	AngleUpFastKey: key.NewBinding(
		key.WithKeys("shift+up"),
		key.WithHelp("shift+↑", "angle +10°"),
	),
	AngleDownFastKey: key.NewBinding(
		key.WithKeys("shift+down"),
		key.WithHelp("shift+↓", "angle -10°"),
	),
	HomeAllKey: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "reset to home"),
	),
	SendKey: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "apply input / send"),
	),
	ToggleSessionKey: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "open/close port"),
	),
	NextPortKey: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("ctrl+p", "next port"),
	),
	OpenEditorKey: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "open editor"),
	),
	ClearLogKey: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear log"),
	),
	DeletePoseKey: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "delete pose"),
	),
	ResetKey: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "reset input"),
	),
	HelpKey: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "show help"),
	),
	QuitKey: key.NewBinding(
		key.WithKeys("ctrl+q"),
		key.WithHelp("ctrl+q", "quit"),
	),
	CloseKey: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close menu"),
	),
}
