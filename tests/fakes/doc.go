// Package fakes provides test doubles for the external client interfaces
// lakebench talks to. Fakes are manually implemented (not generated) to
// give tests precise control over backend behavior without real service
// dependencies.
//
// Usage:
//
//	fake := fakes.NewFakeSecretsManagerClient()
//	fake.AddSecretString("bench/workspace", "pat-value")
//	source, _ := secrets.NewSecretsManagerSource(logger,
//	    secrets.WithSecretsManagerClient(fake))
//	// Test source methods...
package fakes
