package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"errors"

	"pdfcore/ir/raw"
)

// passwordPadding is the 32-byte constant ISO 32000-1 Algorithm 2 appends to
// (and truncates) a user-supplied password before hashing.
var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

func padPassword(pwd []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, pwd)
	copy(out[n:], passwordPadding)
	return out
}

// cryptFilterSpec is the resolved algorithm and key length for one named
// entry of the /CF dictionary (or, for V<4 documents that carry no /CF, the
// single implicit legacy filter).
type cryptFilterSpec struct {
	cfm       string // "V2" (RC4), "AESV2", "AESV3", "Identity"
	keyBytes  int
}

type standardHandler struct {
	v, r            int
	length          int // file key length, bytes
	p               int32
	encryptMetadata bool
	fileID          []byte

	oRaw, uRaw, oeRaw, ueRaw []byte

	filters       map[string]cryptFilterSpec
	stmFName      string
	strFName      string
	legacyFilter  cryptFilterSpec

	fileKey []byte
}

func newStandardHandler(dict raw.Dictionary, fileID []byte) (*standardHandler, error) {
	h := &standardHandler{fileID: fileID, filters: map[string]cryptFilterSpec{}}

	h.v = dictInt(dict, "V", 0)
	h.r = dictInt(dict, "R", 2)
	bits := dictInt(dict, "Length", 40)
	h.length = bits / 8
	if h.length == 0 {
		h.length = 5
	}
	h.p = int32(dictInt(dict, "P", -1))
	h.encryptMetadata = dictBool(dict, "EncryptMetadata", true)

	h.oRaw = dictString(dict, "O")
	h.uRaw = dictString(dict, "U")
	h.oeRaw = dictString(dict, "OE")
	h.ueRaw = dictString(dict, "UE")

	if h.v >= 5 {
		h.length = 32
		h.legacyFilter = cryptFilterSpec{cfm: "AESV3", keyBytes: 32}
	} else {
		h.legacyFilter = cryptFilterSpec{cfm: "V2", keyBytes: h.length}
	}

	// An empty name routes through the implicit legacy filter. When /CF is
	// present, a missing /StmF or /StrF defaults to "Identity", which turns
	// encryption off for that kind of data.
	h.stmFName, h.strFName = "", ""
	if h.v >= 4 {
		if cf, ok := dictDict(dict, "CF"); ok {
			for _, name := range cf.Keys() {
				sub, ok := dictDict(cf, name.Value())
				if !ok {
					continue
				}
				cfm := dictName(sub, "CFM", "Identity")
				spec := cryptFilterSpec{cfm: cfm, keyBytes: dictInt(sub, "Length", h.length)}
				// Some writers record /Length in bits even inside a crypt
				// filter dictionary; treat an implausibly large value as bits.
				if spec.keyBytes > 32 {
					spec.keyBytes /= 8
				}
				if spec.keyBytes == 0 {
					spec.keyBytes = h.length
				}
				h.filters[name.Value()] = spec
			}
			h.stmFName = dictName(dict, "StmF", "Identity")
			h.strFName = dictName(dict, "StrF", "Identity")
		}
	}

	return h, nil
}

func (h *standardHandler) IsEncrypted() bool { return true }

func (h *standardHandler) Permissions() Permissions { return parsePermissions(h.p) }

func (h *standardHandler) EncryptMetadata() bool { return h.encryptMetadata }

func (h *standardHandler) Authenticate(password string) error {
	if h.v >= 5 {
		return h.authenticateAES256(password)
	}
	h.fileKey = h.computeLegacyFileKey([]byte(password))
	return nil
}

func (h *standardHandler) authenticateAES256(password string) error {
	pwd := []byte(password)
	if len(h.uRaw) >= 48 && len(h.ueRaw) >= 32 {
		if key, ok, err := deriveAES256User(pwd, h.uRaw, h.ueRaw, h.fileID); err == nil && ok {
			h.fileKey = key
			return nil
		}
	}
	if len(h.oRaw) >= 48 && len(h.oeRaw) >= 32 && len(h.uRaw) >= 48 {
		if key, ok, err := deriveAES256Owner(pwd, h.oRaw, h.oeRaw, h.uRaw[:48], h.fileID); err == nil && ok {
			h.fileKey = key
			return nil
		}
	}
	return errors.New("security: incorrect password")
}

// computeLegacyFileKey implements ISO 32000-1 Algorithm 2: derive the file
// encryption key for revisions 2-4 from the padded user password, the O
// entry, the permissions value, and the first file identifier.
func (h *standardHandler) computeLegacyFileKey(password []byte) []byte {
	padded := padPassword(password)
	sum := md5.New()
	sum.Write(padded)
	sum.Write(h.oRaw)
	var pBytes [4]byte
	pBytes[0] = byte(h.p)
	pBytes[1] = byte(h.p >> 8)
	pBytes[2] = byte(h.p >> 16)
	pBytes[3] = byte(h.p >> 24)
	sum.Write(pBytes[:])
	sum.Write(h.fileID)
	if h.r >= 4 && !h.encryptMetadata {
		sum.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := sum.Sum(nil)
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(key[:h.length])
			key = s[:]
		}
	}
	return key[:h.length]
}

func (h *standardHandler) Decrypt(objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	return h.DecryptWithFilter(objNum, gen, data, class, "")
}

func (h *standardHandler) Encrypt(objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	return h.EncryptWithFilter(objNum, gen, data, class, "")
}

func (h *standardHandler) DecryptWithFilter(objNum, gen int, data []byte, class DataClass, cryptFilter string) ([]byte, error) {
	return h.crypt(objNum, gen, data, class, cryptFilter, false)
}

func (h *standardHandler) EncryptWithFilter(objNum, gen int, data []byte, class DataClass, cryptFilter string) ([]byte, error) {
	return h.crypt(objNum, gen, data, class, cryptFilter, true)
}

func (h *standardHandler) crypt(objNum, gen int, data []byte, class DataClass, cryptFilter string, encrypt bool) ([]byte, error) {
	spec := h.resolveFilter(class, cryptFilter)
	switch spec.cfm {
	case "", "Identity":
		return data, nil
	case "V2":
		key := h.objectKey(objNum, gen, spec, false)
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		c.XORKeyStream(out, data)
		return out, nil
	case "AESV2":
		key := h.objectKey(objNum, gen, spec, true)
		return aesCBCStream(key, data, encrypt)
	case "AESV3":
		return aesCBCStream(h.fileKey, data, encrypt)
	default:
		return data, nil
	}
}

func (h *standardHandler) resolveFilter(class DataClass, name string) cryptFilterSpec {
	if name == "" {
		if class == DataClassString {
			name = h.strFName
		} else {
			name = h.stmFName
		}
	}
	if name == "Identity" {
		return cryptFilterSpec{cfm: "Identity"}
	}
	if name == "" {
		return h.legacyFilter
	}
	if spec, ok := h.filters[name]; ok {
		return spec
	}
	return h.legacyFilter
}

// objectKey implements ISO 32000-1 Algorithm 1: the per-object key for
// revisions below 5 is the file key salted with the object number,
// generation, and (for AESV2) the "sAlT" constant, MD5-hashed and truncated.
func (h *standardHandler) objectKey(objNum, gen int, spec cryptFilterSpec, aesSalt bool) []byte {
	sum := md5.New()
	sum.Write(h.fileKey)
	sum.Write([]byte{byte(objNum), byte(objNum >> 8), byte(objNum >> 16)})
	sum.Write([]byte{byte(gen), byte(gen >> 8)})
	if aesSalt {
		sum.Write([]byte{0x73, 0x41, 0x6C, 0x54})
	}
	digest := sum.Sum(nil)
	n := len(h.fileKey) + 5
	if n > 16 {
		n = 16
	}
	return digest[:n]
}

// aesCBCStream encrypts/decrypts object data with the file or object key,
// using a random per-call IV stored as the first 16 bytes of the ciphertext
// and PKCS#7 padding, per ISO 32000-1 Algorithm 1 "CBC with an IV stored as
// the first 16 bytes".
func aesCBCStream(key, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if encrypt {
		padded := pkcs7Pad(data, aes.BlockSize)
		out := make([]byte, aes.BlockSize+len(padded))
		iv := out[:aes.BlockSize]
		if _, err := rand.Read(iv); err != nil {
			return nil, err
		}
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
		return out, nil
	}
	if len(data) < aes.BlockSize || (len(data)-aes.BlockSize)%aes.BlockSize != 0 {
		return nil, errors.New("security: malformed AES ciphertext")
	}
	iv := data[:aes.BlockSize]
	ct := data[aes.BlockSize:]
	out := make([]byte, len(ct))
	if len(ct) == 0 {
		return out, nil
	}
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	return pkcs7Unpad(out), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	n := int(data[len(data)-1])
	if n <= 0 || n > len(data) {
		return data
	}
	return data[:len(data)-n]
}

// rev6Hash implements ISO 32000-2 Algorithm 2.B, the hardened hash used to
// validate revision-6 passwords and derive the AES-256 key-wrapping key: an
// initial SHA-256 digest, then repeated rounds of AES-128-CBC encryption
// over 64 repetitions of (password, K, extra) with the next round's hash
// function chosen by the encrypted output's byte sum mod 3, continuing past
// round 64 until the output's last byte is no greater than round-32.
func rev6Hash(password, salt, extra []byte) [32]byte {
	seed := sha256.Sum256(concat(password, salt, extra))
	k := seed[:]
	round := 0
	for {
		k1 := make([]byte, 0, 64*(len(password)+len(k)+len(extra)))
		for i := 0; i < 64; i++ {
			k1 = append(k1, password...)
			k1 = append(k1, k...)
			k1 = append(k1, extra...)
		}
		aligned := k1[:len(k1)-len(k1)%aes.BlockSize]
		block, err := aes.NewCipher(k[:16])
		if err != nil {
			break
		}
		e := make([]byte, len(aligned))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, aligned)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		switch sum % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		default:
			s := sha512.Sum512(e)
			k = s[:]
		}
		round++
		if round >= 64 && int(e[len(e)-1]) <= round-32 {
			var out [32]byte
			copy(out[:], k[:32])
			return out
		}
	}
	var out [32]byte
	copy(out[:], k[:32])
	return out
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// aesCBCNoIV wraps or unwraps the 32-byte file encryption key inside UE/OE:
// AES-256-CBC with a zero IV and no padding, per ISO 32000-2 Algorithms 8-9.
func aesCBCNoIV(key, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, errors.New("security: aesCBCNoIV: data not block-aligned")
	}
	iv := make([]byte, aes.BlockSize)
	out := make([]byte, len(data))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	}
	return out, nil
}

// deriveAES256User validates password against the U entry's validation hash
// and, on success, unwraps the file encryption key from UE.
func deriveAES256User(password, uEntry, ueEntry, fileID []byte) ([]byte, bool, error) {
	if len(uEntry) < 48 || len(ueEntry) < 32 {
		return nil, false, errors.New("security: malformed U/UE entry")
	}
	validationSalt := uEntry[32:40]
	keySalt := uEntry[40:48]
	hash := rev6Hash(password, validationSalt, fileID)
	if subtle.ConstantTimeCompare(hash[:], uEntry[:32]) != 1 {
		return nil, false, nil
	}
	interKey := rev6Hash(password, keySalt, fileID)
	fileKey, err := aesCBCNoIV(interKey[:32], ueEntry[:32], false)
	if err != nil {
		return nil, false, err
	}
	return fileKey, true, nil
}

// deriveAES256Owner is deriveAES256User's owner-password counterpart: the
// hash input's "extra" bytes are the full 48-byte U entry rather than the
// file identifier.
func deriveAES256Owner(password, oEntry, oeEntry, uEntry48, fileID []byte) ([]byte, bool, error) {
	_ = fileID
	if len(oEntry) < 48 || len(oeEntry) < 32 || len(uEntry48) < 48 {
		return nil, false, errors.New("security: malformed O/OE entry")
	}
	validationSalt := oEntry[32:40]
	keySalt := oEntry[40:48]
	hash := rev6Hash(password, validationSalt, uEntry48[:48])
	if subtle.ConstantTimeCompare(hash[:], oEntry[:32]) != 1 {
		return nil, false, nil
	}
	interKey := rev6Hash(password, keySalt, uEntry48[:48])
	fileKey, err := aesCBCNoIV(interKey[:32], oeEntry[:32], false)
	if err != nil {
		return nil, false, err
	}
	return fileKey, true, nil
}

func parsePermissions(p int32) Permissions {
	bit := func(n uint) bool { return p&(1<<(n-1)) != 0 }
	return Permissions{
		Print:             bit(3),
		Modify:            bit(4),
		Copy:              bit(5),
		ModifyAnnotations: bit(6),
		FillForms:         bit(9),
		ExtractAccessible: bit(10),
		Assemble:          bit(11),
		PrintHighQuality:  bit(12),
	}
}

// PermissionsValue packs Permissions into the 32-bit signed P entry value,
// per ISO 32000-1 Table 22: bits 1-2 are reserved and always clear, every
// other reserved bit is set per the historical default of "all permitted".
func PermissionsValue(p raw.Permissions) int32 {
	v := int32(-4) // 0xFFFFFFFC: bits 1-2 clear, everything else set
	set := func(n uint, val bool) {
		mask := int32(1) << (n - 1)
		if val {
			v |= mask
		} else {
			v &^= mask
		}
	}
	set(3, p.Print)
	set(4, p.Modify)
	set(5, p.Copy)
	set(6, p.ModifyAnnotations)
	set(9, p.FillForms)
	set(10, p.ExtractAccessible)
	set(11, p.Assemble)
	set(12, p.PrintHighQuality)
	return v
}

func dictString(d raw.Dictionary, key string) []byte {
	v, ok := d.Get(raw.NameObj{Val: key})
	if !ok {
		return nil
	}
	if s, ok := v.(raw.StringObj); ok {
		return s.Bytes
	}
	return nil
}

func dictInt(d raw.Dictionary, key string, def int) int {
	v, ok := d.Get(raw.NameObj{Val: key})
	if !ok {
		return def
	}
	if n, ok := v.(raw.NumberObj); ok {
		return int(n.Int())
	}
	return def
}

func dictBool(d raw.Dictionary, key string, def bool) bool {
	v, ok := d.Get(raw.NameObj{Val: key})
	if !ok {
		return def
	}
	if b, ok := v.(raw.BoolObj); ok {
		return b.Value()
	}
	return def
}

func dictName(d raw.Dictionary, key, def string) string {
	v, ok := d.Get(raw.NameObj{Val: key})
	if !ok {
		return def
	}
	if n, ok := v.(raw.NameObj); ok {
		return n.Value()
	}
	return def
}

func dictDict(d raw.Dictionary, key string) (raw.Dictionary, bool) {
	v, ok := d.Get(raw.NameObj{Val: key})
	if !ok {
		return nil, false
	}
	sub, ok := v.(raw.Dictionary)
	return sub, ok
}
