package gateway

import "configas/config"

// Registry is the fixed provider table plus the live client per provider.
// It is built once at startup and never mutated.
type Registry struct {
	descriptors []Descriptor
	providers   map[string]Provider
}

func NewRegistry(descriptors []Descriptor, providers map[string]Provider) *Registry {
	return &Registry{descriptors: descriptors, providers: providers}
}

// FromConfig builds the production registry: four providers with their
// public aliases, enabled flags and selection weights from config.
func FromConfig(cfg *config.GatewaysConfig) *Registry {
	descriptors := []Descriptor{
		{ID: Ezzpag, Name: "Ezzpag", Alias: "gateway_a", Enabled: cfg.Ezzpag.Enabled, Weight: weightOrOne(cfg.Ezzpag.Weight)},
		{ID: Ghost, Name: "Ghost Pay", Alias: "gateway_b", Enabled: cfg.Ghost.Enabled, Weight: weightOrOne(cfg.Ghost.Weight)},
		{ID: BlackCat, Name: "BlackCat", Alias: "gateway_c", Enabled: cfg.BlackCat.Enabled, Weight: weightOrOne(cfg.BlackCat.Weight)},
		{ID: Umbrela, Name: "Ativo/Umbrela", Alias: "gateway_d", Enabled: cfg.Umbrela.Enabled, Weight: weightOrOne(cfg.Umbrela.Weight)},
	}
	providers := map[string]Provider{
		Ezzpag:   NewEzzpagProvider(cfg.Ezzpag.BaseURL, cfg.Ezzpag.AuthToken),
		Ghost:    NewGhostProvider(cfg.Ghost.BaseURL, cfg.Ghost.AuthToken),
		BlackCat: NewBlackCatProvider(cfg.BlackCat.BaseURL, cfg.BlackCat.AuthToken),
		Umbrela:  NewUmbrelaProvider(cfg.Umbrela.BaseURL, cfg.Umbrela.APIKey),
	}
	return NewRegistry(descriptors, providers)
}

func weightOrOne(w int) int {
	if w < 1 {
		return 1
	}
	return w
}

// Enabled filters the table; no side effects.
func (r *Registry) Enabled() []Descriptor {
	var out []Descriptor
	for _, d := range r.descriptors {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

func (r *Registry) Lookup(id string) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

func (r *Registry) Provider(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// NormalizeStatus maps a provider-native status string to the domain
// status, using the same tables the clients use. Webhook payloads carry
// provider-native statuses, so they go through here.
func NormalizeStatus(providerID, status string) string {
	switch providerID {
	case Ezzpag:
		return mapEzzpagStatus(status)
	case Ghost:
		return mapGhostStatus(status)
	case BlackCat:
		return mapBlackCatStatus(status)
	case Umbrela:
		return mapUmbrelaStatus(status)
	default:
		return mapEzzpagStatus(status)
	}
}
