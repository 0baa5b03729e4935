// Package endpoint implements the HTTP surface: thin http.Handlers
// wiring net/http requests to netio/pair's TLV8 state machines and
// netio/controller's JSON views.
package endpoint

import (
	"io"
	"net/http"
	"strconv"

	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/status"
)

const (
	contentTypeTLV8 = "application/pairing+tlv8"
	contentTypeJSON = "application/hap+json"
)

// maxBodySize bounds a single request body, matching HAP's own TLV8 and
// JSON payloads which never approach this size; it exists to bound a
// malicious Content-Length rather than to model a real protocol limit.
const maxBodySize = 1 << 20

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

func writeTLV8(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", contentTypeTLV8)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	w.Write(body)
}

func writeJSONStatus(w http.ResponseWriter, statusCode int, code status.Code) {
	writeJSON(w, statusCode, []byte(`{"status":`+strconv.Itoa(int(code))+`}`))
}

// sessionOf recovers the Session the listener attached to this
// connection via netio.ContextWithConn, failing the request with 500 if
// somehow absent (it never should be — every accepted connection gets
// one).
func sessionOf(w http.ResponseWriter, r *http.Request) (*netio.Session, bool) {
	sess := netio.SessionFromContext(r.Context())
	if sess == nil {
		log.Info.Println("endpoint: request with no session in context")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// requireEncrypted enforces "Encrypted-only endpoints
// ... return 400 if session not yet Encrypted".
func requireEncrypted(w http.ResponseWriter, sess *netio.Session) bool {
	if !sess.IsEncrypted() {
		writeJSONStatus(w, http.StatusBadRequest, status.InsufficientPrivileges)
		return false
	}
	return true
}

func requireAdmin(w http.ResponseWriter, sess *netio.Session) bool {
	if !sess.IsAdmin() {
		writeJSONStatus(w, http.StatusBadRequest, status.InsufficientPrivileges)
		return false
	}
	return true
}
