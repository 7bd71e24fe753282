package oauth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// callbackHandler serves the redirect target of the authorization request.
// The first valid code or error is delivered on the channels; both must be
// buffered.
func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	fail := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusForbidden)
			fail(errors.New("callback state mismatch (possible CSRF)"))
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "sign-in was not completed", http.StatusBadRequest)
			fail(fmt.Errorf("provider returned %s: %s", e, q.Get("error_description")))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			fail(errors.New("callback received without code"))
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, callbackHTML) //nolint:errcheck
		select {
		case codeCh <- code:
		default:
		}
	})
	return r
}

const callbackHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Storefront</title>
<style>
body{font-family:system-ui,sans-serif;background:#101014;color:#e4e4ec;height:100vh;margin:0;display:flex;align-items:center;justify-content:center}
.msg{color:#34d474;font-weight:600}
.sub{color:#707888;font-size:13px;margin-top:8px}
</style></head>
<body><div><div class="msg">Signed in.</div><div class="sub">You can close this tab and return to the terminal.</div></div></body>
</html>
`
