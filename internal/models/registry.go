package models

// Registry exposes ModelTypeRegistry to the migration tooling.
type Registry struct{}

func (Registry) GetModels() map[string]interface{} {
	return ModelTypeRegistry
}
