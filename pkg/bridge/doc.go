// Package bridge connects the anarchy core to a UI layer.
//
// Values flow one way, from the core to a Sink, under fixed binding names
// (BindAnarchyEnabled, BindDisabledStates, ...). A value is pushed only when
// it differs from the last push. Triggers flow the other way and mutate core
// state: toggling anarchy, changing a check's policy by display index,
// adjusting elevation and grade, and toggling composition flags on the
// active tool session.
//
// External tools register themselves as anarchy-eligible through
// RegisterTool, which fails until a Sink is attached.
package bridge
