/******************************************************************************
 *
 *  Description :
 *
 *  Authentication of the host forum by API key.
 *
 *****************************************************************************/

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"

	"github.com/tinode/anonsub/server/logs"
)

// Signed API key. Composition:
//
//	[1:algorithm version][2:key sequence][1:scope][32:signature] = 36 bytes
//
// convertible to base64 without padding
// All integers are little-endian
const (
	APIKEY_VERSION   = 1
	APIKEY_SEQUENCE  = 2
	APIKEY_SCOPE     = 1
	APIKEY_SIGNATURE = 32
	APIKEY_LENGTH    = APIKEY_VERSION + APIKEY_SEQUENCE + APIKEY_SCOPE + APIKEY_SIGNATURE

	// The key may be used to report reply events.
	scopeWebhook = 1
)

// Client signature validation
//
//	key: client's secret key
//
// Returns true if the key is signed with the salt and grants the scope.
func checkApiKey(apikey string, salt []byte, scope byte) bool {
	if declen := base64.URLEncoding.DecodedLen(len(apikey)); declen != APIKEY_LENGTH {
		return false
	}

	data, err := base64.URLEncoding.DecodeString(apikey)
	if err != nil {
		logs.Warn.Println("failed to decode.base64 apikey", err)
		return false
	}
	if data[0] != 1 {
		logs.Warn.Println("unknown apikey signature algorithm", data[0])
		return false
	}

	hasher := hmac.New(sha256.New, salt)
	hasher.Write(data[:APIKEY_VERSION+APIKEY_SEQUENCE+APIKEY_SCOPE])
	if !hmac.Equal(data[APIKEY_VERSION+APIKEY_SEQUENCE+APIKEY_SCOPE:], hasher.Sum(nil)) {
		logs.Warn.Println("invalid apikey signature")
		return false
	}

	return data[APIKEY_VERSION+APIKEY_SEQUENCE] == scope
}

// getApiKey reads the key from the header or the query.
func getApiKey(req *http.Request) string {
	apikey := req.Header.Get("X-AnonSub-APIKey")
	if apikey == "" {
		apikey = req.URL.Query().Get("apikey")
	}
	return apikey
}

// requireApiKey rejects requests without a valid key. No check is made if the salt is empty.
func requireApiKey(salt []byte, scope byte, handler http.Handler) http.Handler {
	if len(salt) == 0 {
		return handler
	}
	return http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		if !checkApiKey(getApiKey(req), salt, scope) {
			writeError(wrt, http.StatusForbidden, "valid API key is required")
			return
		}
		handler.ServeHTTP(wrt, req)
	})
}
