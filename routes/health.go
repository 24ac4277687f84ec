package routes

import "net/http"

func Hello(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OPSEC K9 server is running"))
}

func Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "msg": "pong"})
}
