package endpoint

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/netio/controller"
)

// CharacteristicsEndpoint serves GET/PUT /characteristics, encrypted only.
type CharacteristicsEndpoint struct {
	Controller *controller.CharacteristicController
}

func NewCharacteristics(c *controller.CharacteristicController) *CharacteristicsEndpoint {
	return &CharacteristicsEndpoint{Controller: c}
}

func (e *CharacteristicsEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOf(w, r)
	if !ok {
		return
	}
	if !requireEncrypted(w, sess) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		e.serveGet(w, r)
	case http.MethodPut:
		e.servePut(w, r, sess)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// parseIDList parses the `id=A.I[,A.I]*` query parameter of a
// GET /characteristics request.
func parseIDList(raw string) ([]controller.CharacteristicQuery, bool) {
	var out []controller.CharacteristicQuery
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, ".", 2)
		if len(parts) != 2 {
			return nil, false
		}
		aid, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, false
		}
		iid, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, controller.CharacteristicQuery{AID: aid, IID: iid})
	}
	return out, true
}

func (e *CharacteristicsEndpoint) serveGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	queries, ok := parseIDList(q.Get("id"))
	if !ok || len(queries) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	includeMeta := q.Get("meta") == "1"
	includePerms := q.Get("perms") == "1"
	includeType := q.Get("type") == "1"

	body, allSuccess, err := e.Controller.Get(queries, includeMeta, includePerms, includeType)
	if err != nil {
		log.Info.Printf("characteristics: get: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if !allSuccess {
		code = http.StatusMultiStatus
	}
	writeJSON(w, code, body)
}

type putRequestItem struct {
	AID   uint64      `json:"aid"`
	IID   uint64      `json:"iid"`
	Value interface{} `json:"value"`
	Ev    *bool       `json:"ev"`
}

type putRequestBody struct {
	Characteristics []putRequestItem `json:"characteristics"`
}

type putFailureBody struct {
	Characteristics []putFailureItem `json:"characteristics"`
}

type putFailureItem struct {
	AID    uint64 `json:"aid"`
	IID    uint64 `json:"iid"`
	Status int    `json:"status"`
}

// sessionSink adapts *netio.Session to controller.Sink, keeping that
// package free of a netio import (see DESIGN.md).
type sessionSink struct{ *netio.Session }

func (s sessionSink) ID() string { return s.Session.ID.String() }

func (e *CharacteristicsEndpoint) servePut(w http.ResponseWriter, r *http.Request, sess *netio.Session) {
	body, err := readBody(r)
	if err != nil {
		log.Info.Printf("characteristics: read body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var req putRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	items := make([]controller.PutItem, 0, len(req.Characteristics))
	for _, it := range req.Characteristics {
		pi := controller.PutItem{AID: it.AID, IID: it.IID, Value: it.Value}
		if it.Ev != nil {
			pi.HasEv = true
			pi.Ev = *it.Ev
		}
		items = append(items, pi)
	}

	allSuccess, failures := e.Controller.Put(sessionSink{sess}, items)
	if allSuccess {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	out := putFailureBody{}
	for _, f := range failures {
		out.Characteristics = append(out.Characteristics, putFailureItem{AID: f.AID, IID: f.IID, Status: f.Status})
	}
	payload, _ := json.Marshal(out)
	writeJSON(w, http.StatusMultiStatus, payload)
}
