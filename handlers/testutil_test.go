package handlers_test

import (
	"net/http"

	"github.com/gorilla/mux"
)

// muxSetVar attaches a gorilla/mux route variable to req the way the real
// router would after matching a {id}-style path segment, so handlers that
// read mux.Vars can be exercised directly with httptest, without standing
// up a full router.
func muxSetVar(req *http.Request, key, value string) *http.Request {
	return mux.SetURLVars(req, map[string]string{key: value})
}
