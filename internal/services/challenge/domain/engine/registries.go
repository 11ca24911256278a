package engine

import (
	"fmt"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

// Registries bundles the command and event registries.
type Registries struct {
	Commands *command.Registry
	Events   *event.Registry
}

// BuildRegistries registers the challenge command and event contracts.
func BuildRegistries() (Registries, error) {
	commandRegistry := command.NewRegistry()
	eventRegistry := event.NewRegistry()

	if err := challenge.RegisterCommands(commandRegistry); err != nil {
		return Registries{}, fmt.Errorf("register challenge commands: %w", err)
	}
	if err := challenge.RegisterEvents(eventRegistry); err != nil {
		return Registries{}, fmt.Errorf("register challenge events: %w", err)
	}
	if err := validateEventNames(eventRegistry); err != nil {
		return Registries{}, err
	}
	return Registries{Commands: commandRegistry, Events: eventRegistry}, nil
}

// validateEventNames ensures every event carries a domain prefix and an
// external name distinct from its type.
func validateEventNames(events *event.Registry) error {
	seen := make(map[string]event.Type)
	for _, def := range events.ListDefinitions() {
		if def.Type.Domain() != challenge.EntityType {
			return fmt.Errorf("event type %s is outside the %s domain", def.Type, challenge.EntityType)
		}
		name := challenge.EventName(def.Type)
		if name == string(def.Type) {
			return fmt.Errorf("event type %s has no external name", def.Type)
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("event name %s used by %s and %s", name, other, def.Type)
		}
		seen[name] = def.Type
	}
	return nil
}
