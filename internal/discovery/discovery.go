// Package discovery enumerates injected wallet providers in a host
// environment and resolves them by name.
package discovery

import (
	"github.com/agnivade/levenshtein"

	"github.com/Warder-Sonic/warder-wallet/internal/provider"
)

// Wallet display names. The name doubles as the stable candidate key.
const (
	NameMetaMask = "MetaMask"
	NameRabby    = "Rabby"
	NameOKX      = "OKX"

	// NameInjected is the generic name for a shared-namespace provider
	// that carries no recognized wallet flags, including the configured
	// node-backed provider in headless environments.
	NameInjected = "Injected"
)

// NamespaceOKX is the independent global namespace the OKX extension
// injects alongside the shared one.
const NamespaceOKX = "okxwallet"

// Candidate is a discovered injected wallet.
type Candidate struct {
	Name     string
	Icon     string
	Provider provider.Provider
}

// Host abstracts the injected-global environment: the shared provider
// namespace plus independently-namespaced wallet globals.
type Host interface {
	// Injected returns the shared-namespace provider, or nil.
	Injected() provider.Injected

	// Named returns the provider injected on its own namespace, or nil.
	Named(namespace string) provider.Injected
}

// List enumerates installed wallets. It handles the three shapes a host
// can expose: a single flagged provider, a provider carrying an array of
// sub-providers, and independently-namespaced globals. An empty result
// means no wallet is installed; that is a normal state, not an error.
//
// A provider flagged as one specific wallet is never also counted as
// another kind: Rabby sets isMetaMask for compatibility, so isMetaMask
// only counts when isRabby is unset. Duplicate names are suppressed,
// first match wins.
func List(host Host) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)

	add := func(name, icon string, p provider.Provider) {
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, Candidate{Name: name, Icon: icon, Provider: p})
	}

	classify := func(p provider.Injected) {
		flags := p.Flags()
		if flags.MetaMask && !flags.Rabby {
			add(NameMetaMask, "🦊", p)
		}
		if flags.Rabby {
			add(NameRabby, "🐰", p)
		}
	}

	if shared := host.Injected(); shared != nil {
		classify(shared)
		for _, sub := range shared.SubProviders() {
			classify(sub)
		}
		// An unflagged shared provider is still a usable wallet.
		if len(out) == 0 {
			add(NameInjected, "🔌", shared)
		}
	}

	if okx := host.Named(NamespaceOKX); okx != nil {
		add(NameOKX, "⚡", okx)
	}

	return out
}

// Find resolves a wallet by the same name List reported. Discovery is
// re-run rather than cached so a provider handle recorded in an earlier
// session resolves to the currently installed extension.
func Find(host Host, name string) (Candidate, bool) {
	for _, c := range List(host) {
		if c.Name == name {
			return c, true
		}
	}
	return Candidate{}, false
}

// Suggest returns the installed wallet name closest to the given one,
// or "" when nothing is installed or nothing is close enough.
func Suggest(host Host, name string) string {
	const maxDistance = 3

	best := ""
	bestDist := maxDistance + 1
	for _, c := range List(host) {
		if d := levenshtein.ComputeDistance(name, c.Name); d < bestDist {
			best = c.Name
			bestDist = d
		}
	}
	return best
}
