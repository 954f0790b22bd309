package security

import (
	"crypto/aes"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"

	"pdfcore/ir/raw"
)

// EncryptionAlgorithm selects the cipher family BuildEncryption uses for the
// document's standard crypt filter.
type EncryptionAlgorithm int

const (
	EncryptionAlgorithmRC4 EncryptionAlgorithm = iota
	EncryptionAlgorithmAES
)

// EncryptionOptions configures BuildEncryption's choice of revision, key
// length, and crypt filter method.
type EncryptionOptions struct {
	Algorithm EncryptionAlgorithm
	KeyLength int // bits: 40 or 128 for RC4, 128 or 256 for AES
}

// BuildStandardEncryption builds a revision-3, 128-bit RC4 /Encrypt
// dictionary: the common default for documents that don't need AES.
func BuildStandardEncryption(userPwd, ownerPwd string, perms raw.Permissions, fileID []byte, encryptMetadata bool) (*raw.DictObj, []byte, error) {
	return BuildRC4Encryption(userPwd, ownerPwd, perms, fileID, 128, encryptMetadata)
}

// BuildRC4Encryption builds an RC4-only /Encrypt dictionary at the given key
// length (40 or 128 bits).
func BuildRC4Encryption(userPwd, ownerPwd string, perms raw.Permissions, fileID []byte, keyLengthBits int, encryptMetadata bool) (*raw.DictObj, []byte, error) {
	return BuildEncryption(userPwd, ownerPwd, perms, fileID, EncryptionOptions{Algorithm: EncryptionAlgorithmRC4, KeyLength: keyLengthBits}, encryptMetadata)
}

// BuildEncryption builds an /Encrypt dictionary implementing opts, returning
// the dictionary and the file encryption key (random for AES-256, derived
// from the user password, /O, /P and fileID for the RC4/AES-128 revisions).
func BuildEncryption(userPwd, ownerPwd string, perms raw.Permissions, fileID []byte, opts EncryptionOptions, encryptMetadata bool) (*raw.DictObj, []byte, error) {
	if opts.Algorithm == EncryptionAlgorithmAES && opts.KeyLength >= 256 {
		return buildAES256Encryption(userPwd, ownerPwd, perms, fileID, encryptMetadata)
	}
	return buildLegacyEncryption(userPwd, ownerPwd, perms, fileID, opts, encryptMetadata)
}

func buildLegacyEncryption(userPwd, ownerPwd string, perms raw.Permissions, fileID []byte, opts EncryptionOptions, encryptMetadata bool) (*raw.DictObj, []byte, error) {
	keyBytes := opts.KeyLength / 8
	if keyBytes == 0 {
		keyBytes = 5
	}
	r := 2
	if keyBytes > 5 || opts.Algorithm == EncryptionAlgorithmAES {
		r = 3
	}
	v := 1
	if keyBytes > 5 {
		v = 2
	}
	if opts.Algorithm == EncryptionAlgorithmAES {
		v, r = 4, 4
	}

	pUser := padPassword([]byte(userPwd))
	pOwner := padPassword([]byte(ownerPwd))
	o := computeOLegacy(pUser, pOwner, keyBytes, r)

	p := PermissionsValue(perms)
	h := &standardHandler{v: v, r: r, length: keyBytes, p: p, encryptMetadata: encryptMetadata, fileID: fileID, oRaw: o}
	fileKey := h.computeLegacyFileKey([]byte(userPwd))
	h.fileKey = fileKey
	u := computeULegacy(fileKey, fileID, r)

	enc := raw.Dict()
	enc.Set(raw.NameObj{Val: "Filter"}, raw.NameObj{Val: "Standard"})
	enc.Set(raw.NameObj{Val: "V"}, raw.NumberInt(int64(v)))
	enc.Set(raw.NameObj{Val: "R"}, raw.NumberInt(int64(r)))
	enc.Set(raw.NameObj{Val: "Length"}, raw.NumberInt(int64(keyBytes*8)))
	enc.Set(raw.NameObj{Val: "O"}, raw.Str(o))
	enc.Set(raw.NameObj{Val: "U"}, raw.Str(u))
	enc.Set(raw.NameObj{Val: "P"}, raw.NumberObj{I: int64(p), IsInt: true})
	if !encryptMetadata {
		enc.Set(raw.NameObj{Val: "EncryptMetadata"}, raw.Bool(false))
	}
	if v >= 4 {
		cfm := "AESV2"
		if opts.Algorithm == EncryptionAlgorithmRC4 {
			cfm = "V2"
		}
		cf := raw.Dict()
		std := raw.Dict()
		std.Set(raw.NameObj{Val: "Type"}, raw.NameObj{Val: "CryptFilter"})
		std.Set(raw.NameObj{Val: "CFM"}, raw.NameObj{Val: cfm})
		std.Set(raw.NameObj{Val: "AuthEvent"}, raw.NameObj{Val: "DocOpen"})
		std.Set(raw.NameObj{Val: "Length"}, raw.NumberInt(int64(keyBytes*8)))
		cf.Set(raw.NameObj{Val: "StdCF"}, std)
		enc.Set(raw.NameObj{Val: "CF"}, cf)
		enc.Set(raw.NameObj{Val: "StmF"}, raw.NameObj{Val: "StdCF"})
		enc.Set(raw.NameObj{Val: "StrF"}, raw.NameObj{Val: "StdCF"})
	}
	return enc, fileKey, nil
}

// computeOLegacy implements ISO 32000-1 Algorithm 3.3: the owner password
// entry is the padded user password, RC4-encrypted under a key derived from
// the owner password (or, absent one, the user password again).
func computeOLegacy(paddedUser, paddedOwner []byte, keyBytes, r int) []byte {
	sum := md5.Sum(paddedOwner)
	key := sum[:keyBytes]
	if r >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(key)
			key = s[:keyBytes]
		}
	}
	out := make([]byte, 32)
	copy(out, paddedUser)
	c, _ := rc4.NewCipher(key)
	c.XORKeyStream(out, out)
	if r >= 3 {
		buf := make([]byte, 32)
		for i := 1; i <= 19; i++ {
			roundKey := make([]byte, len(key))
			for j := range key {
				roundKey[j] = key[j] ^ byte(i)
			}
			rc, _ := rc4.NewCipher(roundKey)
			rc.XORKeyStream(buf, out)
			copy(out, buf)
		}
	}
	return out
}

// computeULegacy implements ISO 32000-1 Algorithm 3.4 (revision 2) or 3.5
// (revision 3+): the user password entry proves the file key was derived
// without requiring the password to be stored.
func computeULegacy(fileKey, fileID []byte, r int) []byte {
	if r == 2 {
		out := make([]byte, 32)
		copy(out, passwordPadding)
		c, _ := rc4.NewCipher(fileKey)
		c.XORKeyStream(out, out)
		return out
	}
	sum := md5.New()
	sum.Write(passwordPadding)
	sum.Write(fileID)
	digest := sum.Sum(nil)
	c, _ := rc4.NewCipher(fileKey)
	c.XORKeyStream(digest, digest)
	buf := make([]byte, 16)
	for i := 1; i <= 19; i++ {
		roundKey := make([]byte, len(fileKey))
		for j := range fileKey {
			roundKey[j] = fileKey[j] ^ byte(i)
		}
		rc, _ := rc4.NewCipher(roundKey)
		rc.XORKeyStream(buf, digest)
		copy(digest, buf)
	}
	out := make([]byte, 32)
	copy(out, digest)
	copy(out[16:], fileID) // pad remaining bytes; readers ignore them
	return out[:32]
}

// buildAES256Encryption implements ISO 32000-2 Algorithms 8 and 9: a random
// 256-bit file key wrapped separately for the user and owner passwords.
func buildAES256Encryption(userPwd, ownerPwd string, perms raw.Permissions, fileID []byte, encryptMetadata bool) (*raw.DictObj, []byte, error) {
	fileKey := make([]byte, 32)
	if _, err := rand.Read(fileKey); err != nil {
		return nil, nil, err
	}

	uPwd := []byte(userPwd)
	uValidationSalt, uKeySalt := randomSalt(), randomSalt()
	uHash := rev6Hash(uPwd, uValidationSalt, fileID)
	uEntry := append(append(append([]byte{}, uHash[:]...), uValidationSalt...), uKeySalt...)
	uInterKey := rev6Hash(uPwd, uKeySalt, fileID)
	ue, err := aesCBCNoIV(uInterKey[:32], fileKey, true)
	if err != nil {
		return nil, nil, err
	}

	oPwd := []byte(ownerPwd)
	oValidationSalt, oKeySalt := randomSalt(), randomSalt()
	oHash := rev6Hash(oPwd, oValidationSalt, uEntry)
	oEntry := append(append(append([]byte{}, oHash[:]...), oValidationSalt...), oKeySalt...)
	oInterKey := rev6Hash(oPwd, oKeySalt, uEntry)
	oe, err := aesCBCNoIV(oInterKey[:32], fileKey, true)
	if err != nil {
		return nil, nil, err
	}

	p := PermissionsValue(perms)
	permsEntry, err := buildPermsEntry(fileKey, p, encryptMetadata)
	if err != nil {
		return nil, nil, err
	}

	enc := raw.Dict()
	enc.Set(raw.NameObj{Val: "Filter"}, raw.NameObj{Val: "Standard"})
	enc.Set(raw.NameObj{Val: "V"}, raw.NumberInt(5))
	enc.Set(raw.NameObj{Val: "R"}, raw.NumberInt(6))
	enc.Set(raw.NameObj{Val: "Length"}, raw.NumberInt(256))
	enc.Set(raw.NameObj{Val: "O"}, raw.StringObj{Bytes: oEntry})
	enc.Set(raw.NameObj{Val: "U"}, raw.StringObj{Bytes: uEntry})
	enc.Set(raw.NameObj{Val: "OE"}, raw.StringObj{Bytes: oe})
	enc.Set(raw.NameObj{Val: "UE"}, raw.StringObj{Bytes: ue})
	enc.Set(raw.NameObj{Val: "Perms"}, raw.StringObj{Bytes: permsEntry})
	enc.Set(raw.NameObj{Val: "P"}, raw.NumberObj{I: int64(p), IsInt: true})
	if !encryptMetadata {
		enc.Set(raw.NameObj{Val: "EncryptMetadata"}, raw.Bool(false))
	}

	cf := raw.Dict()
	std := raw.Dict()
	std.Set(raw.NameObj{Val: "Type"}, raw.NameObj{Val: "CryptFilter"})
	std.Set(raw.NameObj{Val: "CFM"}, raw.NameObj{Val: "AESV3"})
	std.Set(raw.NameObj{Val: "AuthEvent"}, raw.NameObj{Val: "DocOpen"})
	std.Set(raw.NameObj{Val: "Length"}, raw.NumberInt(256))
	cf.Set(raw.NameObj{Val: "StdCF"}, std)
	enc.Set(raw.NameObj{Val: "CF"}, cf)
	enc.Set(raw.NameObj{Val: "StmF"}, raw.NameObj{Val: "StdCF"})
	enc.Set(raw.NameObj{Val: "StrF"}, raw.NameObj{Val: "StdCF"})

	return enc, fileKey, nil
}

// buildPermsEntry implements ISO 32000-2's Perms entry: a single AES-256
// block, encrypted in ECB mode with the file key, encoding the permission
// bits and an "adb" sentinel the reader checks after decryption.
func buildPermsEntry(fileKey []byte, p int32, encryptMetadata bool) ([]byte, error) {
	block, err := aes.NewCipher(fileKey)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, 16)
	plain[0] = byte(p)
	plain[1] = byte(p >> 8)
	plain[2] = byte(p >> 16)
	plain[3] = byte(p >> 24)
	for i := 4; i < 8; i++ {
		plain[i] = 0xFF
	}
	if encryptMetadata {
		plain[8] = 'T'
	} else {
		plain[8] = 'F'
	}
	plain[9], plain[10], plain[11] = 'a', 'd', 'b'
	if _, err := rand.Read(plain[12:]); err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	block.Encrypt(out, plain)
	return out, nil
}

func randomSalt() []byte {
	salt := make([]byte, 8)
	_, _ = rand.Read(salt)
	return salt
}
