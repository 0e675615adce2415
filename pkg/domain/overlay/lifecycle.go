package overlay

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration. Values match the Action
// constants.
const (
	stateNone   = "none"
	stateAdd    = "add"
	stateEdit   = "edit"
	stateDelete = "delete"
)

// Lifecycle events.
const (
	eventLocalAdd    = "local_add"
	eventLocalUpdate = "local_update"
	eventLocalDelete = "local_delete"
	// eventSynced: the dispatched write landed and nothing changed since.
	eventSynced = "synced"
	// eventSyncedStale: an add or edit landed but the entry was modified
	// while the write was in flight.
	eventSyncedStale = "synced_stale"
	// eventRemovedStale: a delete landed but the entry was modified while
	// the delete was in flight, so the record has to be written again.
	eventRemovedStale = "removed_stale"
)

type lifecycleContext struct{}

// lifecycles holds the sync lifecycle machine once per starting state.
// Machine configs are immutable, so interpreters may share them.
var lifecycles = func() map[Action]*statekit.MachineConfig[lifecycleContext] {
	m := make(map[Action]*statekit.MachineConfig[lifecycleContext], 4)
	for _, from := range []Action{ActionNone, ActionAdd, ActionEdit, ActionDelete} {
		machine, err := buildLifecycle(from)
		if err != nil {
			panic(fmt.Sprintf("sync lifecycle from %q: %v", from, err))
		}
		m[from] = machine
	}
	return m
}()

func buildLifecycle(from Action) (*statekit.MachineConfig[lifecycleContext], error) {
	builder := statekit.NewMachine[lifecycleContext]("sync-lifecycle").
		WithInitial(statekit.StateID(from)).
		WithContext(lifecycleContext{})

	builder.State(stateNone).
		On(eventLocalAdd).Target(stateAdd).
		On(eventLocalUpdate).Target(stateEdit).
		On(eventLocalDelete).Target(stateDelete).
		On(eventRemovedStale).Target(stateAdd).
		Done()

	// Storage has no line for a pending add yet, so edits keep it an add.
	builder.State(stateAdd).
		On(eventLocalUpdate).Target(stateAdd).
		On(eventLocalDelete).Target(stateDelete).
		On(eventSynced).Target(stateNone).
		On(eventSyncedStale).Target(stateEdit).
		On(eventRemovedStale).Target(stateAdd).
		Done()

	builder.State(stateEdit).
		On(eventLocalUpdate).Target(stateEdit).
		On(eventLocalDelete).Target(stateDelete).
		On(eventSynced).Target(stateNone).
		On(eventSyncedStale).Target(stateEdit).
		On(eventRemovedStale).Target(stateAdd).
		Done()

	builder.State(stateDelete).
		On(eventLocalUpdate).Target(stateEdit).
		On(eventLocalDelete).Target(stateDelete).
		On(eventSynced).Target(stateNone).
		On(eventSyncedStale).Target(stateDelete).
		Done()

	return builder.Build()
}

// nextAction runs event through the sync lifecycle starting at from.
// Events that are not allowed from the current state leave it unchanged.
func nextAction(from Action, event string) Action {
	machine, ok := lifecycles[from]
	if !ok {
		from = ActionNone
		machine = lifecycles[from]
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	return Action(interpreter.State().Value)
}
