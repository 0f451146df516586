package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"os"
)

// Generate webhook API key
// Composition:
//
//	[1:algorithm version][2:key sequence][1:scope][32:signature] = 36 bytes
//
// convertible to base64 without padding
// All integers are little-endian
func main() {
	var sequence = flag.Int("sequence", 1, "Sequential number of the API key")
	var apikey = flag.String("validate", "", "API key to validate")
	var hmacSalt = flag.String("salt", "", "HMAC salt, 32 random bytes base64 standard encoded; must match 'api_key_salt' in anonsub.conf")

	flag.Parse()

	if *hmacSalt == "" {
		fmt.Println("Error: salt is required")
		flag.Usage()
		os.Exit(1)
	}

	if *apikey != "" {
		os.Exit(validate(*apikey, *hmacSalt))
	}
	os.Exit(generate(*sequence, *hmacSalt))
}

const (
	APIKEY_VERSION   = 1
	APIKEY_SEQUENCE  = 2
	APIKEY_SCOPE     = 1
	APIKEY_SIGNATURE = 32
	APIKEY_LENGTH    = APIKEY_VERSION + APIKEY_SEQUENCE + APIKEY_SCOPE + APIKEY_SIGNATURE

	// The key may be used to report reply events.
	SCOPE_WEBHOOK = 1
)

func decodeSalt(hmacSalt string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(hmacSalt)
	if err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, errors.New("empty salt")
	}
	return salt, nil
}

// makeKey signs the key header with the salt.
func makeKey(sequence int, salt []byte) string {
	var data [APIKEY_LENGTH]byte

	// [1:algorithm version][2:key sequence][1:scope]
	data[0] = 1 // default algorithm
	binary.LittleEndian.PutUint16(data[APIKEY_VERSION:], uint16(sequence))
	data[APIKEY_VERSION+APIKEY_SEQUENCE] = SCOPE_WEBHOOK

	hasher := hmac.New(sha256.New, salt)
	hasher.Write(data[:APIKEY_VERSION+APIKEY_SEQUENCE+APIKEY_SCOPE])
	copy(data[APIKEY_VERSION+APIKEY_SEQUENCE+APIKEY_SCOPE:], hasher.Sum(nil))

	return base64.URLEncoding.EncodeToString(data[:])
}

// checkKey verifies the signature of the key and returns its sequence and scope.
func checkKey(apikey string, salt []byte) (uint16, uint8, error) {
	if declen := base64.URLEncoding.DecodedLen(len(apikey)); declen != APIKEY_LENGTH {
		return 0, 0, errors.New("wrong length")
	}

	data, err := base64.URLEncoding.DecodeString(apikey)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode.base64 key: %w", err)
	}

	if data[0] != 1 {
		return 0, 0, fmt.Errorf("unknown signature algorithm %d", data[0])
	}

	hasher := hmac.New(sha256.New, salt)
	hasher.Write(data[:APIKEY_VERSION+APIKEY_SEQUENCE+APIKEY_SCOPE])
	if !hmac.Equal(data[APIKEY_VERSION+APIKEY_SEQUENCE+APIKEY_SCOPE:], hasher.Sum(nil)) {
		return 0, 0, errors.New("wrong signature")
	}

	return binary.LittleEndian.Uint16(data[APIKEY_VERSION:]), data[APIKEY_VERSION+APIKEY_SEQUENCE], nil
}

func generate(sequence int, hmacSalt string) int {
	salt, err := decodeSalt(hmacSalt)
	if err != nil {
		fmt.Println("Failed to decode salt:", err)
		return 1
	}
	if sequence <= 0 || sequence > 0xFFFF {
		fmt.Println("Sequence must be between 1 and 65535")
		return 1
	}

	fmt.Printf("API key v%d seq%d: %s\n", 1, sequence, makeKey(sequence, salt))
	return 0
}

func validate(apikey, hmacSalt string) int {
	salt, err := decodeSalt(hmacSalt)
	if err != nil {
		fmt.Println("Failed to decode salt:", err)
		return 1
	}

	sequence, scope, err := checkKey(apikey, salt)
	if err != nil {
		fmt.Println("INVALID:", err)
		return 1
	}

	fmt.Printf("Valid seq%d, scope %d\n", sequence, scope)
	return 0
}
