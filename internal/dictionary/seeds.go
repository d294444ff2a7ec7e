package dictionary

import "context"

// DefaultCompounds are compound corrections for misrecognitions of common
// technical terms, collected from recorded dictation sessions.
func DefaultCompounds() []Compound {
	return []Compound{
		{"cooper netty's", "kubernetes"},
		{"cooper nettie's", "kubernetes"},
		{"cooper neediest", "kubernetes"},
		{"cooper eighties", "kubernetes"},
		{"cube control", "kubectl"},
		{"and simple", "Ansible"},
		{"and symbol", "Ansible"},
		{"engine next", "nginx"},
		{"engine x", "nginx"},
		{"pie torch", "PyTorch"},
		{"tensor flow", "TensorFlow"},
		{"pincer flow", "TensorFlow"},
		{"tail scale", "Tailscale"},
		{"terra form", "Terraform"},
		{"read is", "Redis"},
		{"rough fauna", "Grafana"},
		{"post gress", "Postgres"},
		{"graph queue l", "GraphQL"},
		{"graph q l", "GraphQL"},
		{"type script", "TypeScript"},
		{"java script", "JavaScript"},
		{"next j s", "Next.js"},
		{"ex tool", "xdotool"},
		{"sim spell", "SymSpell"},
		{"a p i", "API"},
		{"a pr", "API"},
		{"a p r", "API"},
		{"see i", "CI"},
		{"see d", "CD"},
	}
}

// SeedDefaults inserts the default compound corrections into store when it
// has none, so a fresh deployment starts with sensible coverage without ever
// clobbering user-added entries.
func SeedDefaults(ctx context.Context, store Store) error {
	existing, err := store.Compounds(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, c := range DefaultCompounds() {
		if _, err := store.AddCompound(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
