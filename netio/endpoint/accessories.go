package endpoint

import (
	"net/http"

	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/netio/controller"
	"github.com/hapcore/hap/status"
)

// AccessoriesEndpoint serves GET /accessories, encrypted only.
type AccessoriesEndpoint struct {
	Controller *controller.ContainerController
}

func NewAccessories(c *controller.ContainerController) *AccessoriesEndpoint {
	return &AccessoriesEndpoint{Controller: c}
}

func (e *AccessoriesEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOf(w, r)
	if !ok {
		return
	}
	if !requireEncrypted(w, sess) {
		return
	}
	body, err := e.Controller.Tree()
	if err != nil {
		log.Info.Printf("accessories: render tree: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// IdentifyEndpoint serves POST /identify, permitted before pairing only.
type IdentifyEndpoint struct {
	Controller *controller.ContainerController
	IsPaired   func() bool
}

func NewIdentify(c *controller.ContainerController, isPaired func() bool) *IdentifyEndpoint {
	return &IdentifyEndpoint{Controller: c, IsPaired: isPaired}
}

func (e *IdentifyEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.IsPaired() {
		writeJSONStatus(w, http.StatusBadRequest, status.InsufficientPrivileges)
		return
	}
	if err := e.Controller.Identify(); err != nil {
		log.Info.Printf("identify: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
