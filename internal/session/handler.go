package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/ccastromar/aos-diet-planner/internal/logx"
)

// Handler serves GET /session?id=<uuid> with the session state as JSON,
// events in chronological order.
func Handler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		if _, err := uuid.Parse(id); err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		st, err := store.Snapshot(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logx.Error("Session", "snapshot %s: %v", id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		sort.SliceStable(st.Events, func(i, j int) bool {
			return st.Events[i].Time.Before(st.Events[j].Time)
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}
