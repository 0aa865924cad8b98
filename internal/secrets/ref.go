package secrets

import (
	"fmt"
	"strings"
)

// Supported reference schemes.
const (
	SchemeEnv      = "env"
	SchemeKeyring  = "keyring"
	SchemeAWSSM    = "aws-sm"
	SchemeAWSSSM   = "aws-ssm"
	SchemeAzureKV  = "azure-kv"
	SchemeGCPSM    = "gcp-sm"
	SchemeAkeyless = "akeyless"
)

var knownSchemes = map[string]bool{
	SchemeEnv:      true,
	SchemeKeyring:  true,
	SchemeAWSSM:    true,
	SchemeAWSSSM:   true,
	SchemeAzureKV:  true,
	SchemeGCPSM:    true,
	SchemeAkeyless: true,
}

// Ref is a parsed secret reference: scheme://path[#field][?version=v].
// Field selects a key inside a JSON-valued secret; Version selects a
// store-specific version (stage name, version id, or number).
type Ref struct {
	Scheme  string
	Path    string
	Field   string
	Version string
}

func (r Ref) String() string {
	s := r.Scheme + "://" + r.Path
	if r.Field != "" {
		s += "#" + r.Field
	}
	if r.Version != "" {
		s += "?version=" + r.Version
	}
	return s
}

// IsReference reports whether value looks like a secret reference with a
// known scheme. Values like "postgres://..." are left alone.
func IsReference(value string) bool {
	idx := strings.Index(value, "://")
	if idx <= 0 {
		return false
	}
	return knownSchemes[value[:idx]]
}

// ParseRef parses a reference string. The version suffix is split off
// first so fields and paths may contain '?' freely everywhere else.
func ParseRef(value string) (Ref, error) {
	idx := strings.Index(value, "://")
	if idx <= 0 {
		return Ref{}, fmt.Errorf("not a secret reference: %q", value)
	}

	ref := Ref{Scheme: value[:idx]}
	if !knownSchemes[ref.Scheme] {
		return Ref{}, fmt.Errorf("unknown secret scheme %q (known: env, keyring, aws-sm, aws-ssm, azure-kv, gcp-sm, akeyless)", ref.Scheme)
	}

	rest := value[idx+3:]
	if i := strings.LastIndex(rest, "?version="); i != -1 {
		ref.Version = rest[i+len("?version="):]
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "#"); i != -1 {
		ref.Field = rest[i+1:]
		rest = rest[:i]
	}
	ref.Path = rest

	if ref.Path == "" {
		return Ref{}, fmt.Errorf("secret reference %q has an empty path", value)
	}
	return ref, nil
}
