// Package secure holds long-lived credentials in guarded memory.
//
// The workspace access token outlives every request the harness makes, so it
// sits in a memguard enclave: encrypted at rest in memory, mlocked against
// swapping, wiped on destruction. The plaintext only exists inside a
// WithBytes callback while a request is being signed.
//
//	buf := secure.NewBufferFromString(token)
//	defer buf.Destroy()
//
//	err := buf.WithBytes(func(b []byte) error {
//	    req.Header.Set("Authorization", "Bearer "+string(b))
//	    return nil
//	})
//
// If mlock is unavailable (RLIMIT_MEMLOCK on Linux), memguard degrades to
// standard allocation; the enclave encryption still applies. None of this
// protects against a root-privileged attacker or hardware-level reads; it
// keeps tokens out of swap files and core dumps, nothing more.
package secure
