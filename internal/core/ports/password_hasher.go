package ports

import "context"

// PasswordHasher is a salted one-way password transform.
type PasswordHasher interface {
	// Hash returns a fresh digest for plaintext. Two calls with the same input
	// never return the same digest.
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. A mismatch is (false, nil);
	// only an unparsable digest yields domain.ErrMalformedDigest.
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
}
