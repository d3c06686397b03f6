package cbom

import (
	"strconv"
	"strings"
)

// QuantumStatus classifies how an algorithm holds up against a
// cryptographically relevant quantum computer.
type QuantumStatus string

const (
	QuantumVulnerable QuantumStatus = "vulnerable"
	QuantumWeakened   QuantumStatus = "weakened"
	QuantumSafe       QuantumStatus = "safe"
	QuantumUnknown    QuantumStatus = "unknown"
)

// ParseQuantumStatus returns the status for a filter value. The empty string
// and unknown values report false.
func ParseQuantumStatus(raw string) (QuantumStatus, bool) {
	switch QuantumStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case QuantumVulnerable:
		return QuantumVulnerable, true
	case QuantumWeakened:
		return QuantumWeakened, true
	case QuantumSafe:
		return QuantumSafe, true
	case QuantumUnknown:
		return QuantumUnknown, true
	default:
		return "", false
	}
}

// Shor breaks these outright.
var quantumVulnerablePrefixes = []string{
	"rsa", "dsa", "ecdsa", "ecdh", "ecdhe", "dh", "dhe", "ffdh", "eddsa", "ed25519", "ed448",
	"x25519", "x448", "elgamal", "ecies", "secp", "brainpool",
}

var quantumSafePrefixes = []string{
	"ml-kem", "mlkem", "kyber", "ml-dsa", "mldsa", "dilithium", "slh-dsa", "sphincs", "falcon", "fn-dsa",
	"xmss", "lms", "sha3", "shake", "sha-384", "sha384", "sha-512", "sha512",
}

// ClassifyAlgorithm derives a QuantumStatus from the algorithm name and, when
// present, its primitive and parameter set.
func ClassifyAlgorithm(name, primitive, parameterSet string, nistQuantumLevel int) QuantumStatus {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return QuantumUnknown
	}
	for _, prefix := range quantumSafePrefixes {
		if strings.HasPrefix(n, prefix) {
			return QuantumSafe
		}
	}
	for _, prefix := range quantumVulnerablePrefixes {
		if n == prefix || strings.HasPrefix(n, prefix+"-") || strings.HasPrefix(n, prefix+"_") || strings.HasPrefix(n, prefix+"with") || (len(prefix) > 2 && strings.HasPrefix(n, prefix)) {
			return QuantumVulnerable
		}
	}

	switch strings.ToLower(strings.TrimSpace(primitive)) {
	case "pke", "kem", "signature", "key-agree":
		if nistQuantumLevel > 0 {
			return QuantumSafe
		}
	}

	// Grover halves the effective strength of symmetric ciphers and hashes.
	if strings.HasPrefix(n, "aes") || strings.HasPrefix(n, "chacha20") || strings.HasPrefix(n, "camellia") {
		if keySize(n, parameterSet) >= 256 {
			return QuantumSafe
		}
		return QuantumWeakened
	}
	if strings.HasPrefix(n, "sha-256") || strings.HasPrefix(n, "sha256") || strings.HasPrefix(n, "sha-224") || strings.HasPrefix(n, "hmac") {
		return QuantumWeakened
	}
	if strings.HasPrefix(n, "md5") || strings.HasPrefix(n, "sha-1") || strings.HasPrefix(n, "sha1") || strings.HasPrefix(n, "des") || strings.HasPrefix(n, "3des") || strings.HasPrefix(n, "rc4") {
		return QuantumVulnerable
	}
	if nistQuantumLevel > 0 {
		return QuantumSafe
	}
	return QuantumUnknown
}

func keySize(name, parameterSet string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(parameterSet)); err == nil {
		return n
	}
	if strings.HasPrefix(name, "chacha20") {
		return 256
	}
	for _, size := range []int{256, 192, 128} {
		if strings.Contains(name, strconv.Itoa(size)) {
			return size
		}
	}
	return 0
}

var purlLanguages = map[string]string{
	"maven":     "Java",
	"gradle":    "Java",
	"npm":       "JavaScript",
	"pypi":      "Python",
	"golang":    "Go",
	"cargo":     "Rust",
	"nuget":     "C#",
	"gem":       "Ruby",
	"composer":  "PHP",
	"swift":     "Swift",
	"cocoapods": "Swift",
	"hex":       "Elixir",
	"pub":       "Dart",
	"conan":     "C/C++",
}

// languageFromPURL maps a package URL type (pkg:<type>/...) to a language.
func languageFromPURL(purl string) string {
	purl = strings.TrimSpace(purl)
	if !strings.HasPrefix(purl, "pkg:") {
		return ""
	}
	rest := purl[len("pkg:"):]
	typ, _, _ := strings.Cut(rest, "/")
	return purlLanguages[strings.ToLower(typ)]
}

// languagePropertyName names the CycloneDX property that overrides language
// detection.
const languagePropertyName = "cbom:language"
