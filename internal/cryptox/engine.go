package cryptox

// Engine encrypts whole blobs for the backup pipeline.
//
// By default every blob gets its own random iv, stored in front of the
// ciphertext (Seal/Open). With FixedIV set the configured iv is reused for
// every blob and nothing is prepended; this reads and writes the format of
// the earlier releases.
type Engine struct {
	keys    KeyMaterial
	fixedIV bool
}

// NewEngine returns an Engine over km. fixedIV requires km.IV to be set;
// otherwise every call fails with ErrInvalidIVLength.
func NewEngine(km KeyMaterial, fixedIV bool) *Engine {
	return &Engine{keys: km, fixedIV: fixedIV}
}

// EncryptBlob encrypts plaintext for upload.
func (e *Engine) EncryptBlob(plaintext []byte) ([]byte, error) {
	if e.fixedIV {
		return Encrypt(plaintext, e.keys.Key, e.keys.IV)
	}
	return Seal(plaintext, e.keys.Key)
}

// DecryptBlob decrypts a blob produced by EncryptBlob with the same settings.
func (e *Engine) DecryptBlob(blob []byte) ([]byte, error) {
	if e.fixedIV {
		return Decrypt(blob, e.keys.Key, e.keys.IV)
	}
	return Open(blob, e.keys.Key)
}
