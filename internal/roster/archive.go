package roster

import "io"

// Archive is secondary storage for session spreadsheets and database
// snapshots. All operations stream through io.Reader/io.Writer so large
// files never have to fit in memory.
type Archive interface {
	// Put stores an object under name. size is the number of bytes that
	// will be read from r.
	Put(name string, r io.Reader, size int64) error

	// Get retrieves the object stored under name and writes it to w.
	// Fails with ErrNotFound when no such object exists.
	Get(name string, w io.Writer) error

	// ValidateSetup verifies that the archive backend is accessible.
	ValidateSetup() error
}

// Encryptor protects database snapshots before they leave the local host.
type Encryptor interface {
	// Setup generates and stores the key material, protecting the private
	// half with the passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key with the passphrase and returns a
	// context for decrypting data.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether key material is present.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked identity for decrypting data.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
