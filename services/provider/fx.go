package provider

import (
	"go.uber.org/fx"
)

var Module = fx.Module("provider",
	fx.Provide(ProvideRegistry),
)

// ProvideRegistry assembles the registry over the known jurisdictions.
func ProvideRegistry() *Registry {
	r := NewRegistry()
	r.Register("Utah", NewUtahAdapter())
	return r
}
