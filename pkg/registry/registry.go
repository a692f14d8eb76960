package registry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Registry is a concurrency-safe ActivityRegistry served over HTTP.
type Registry struct {
	mu  sync.RWMutex
	reg ActivityRegistry
}

func New(version string) *Registry {
	return &Registry{reg: ActivityRegistry{Version: version, Activities: []Activity{}}}
}

// Add registers a, replacing any activity with the same task type.
func (r *Registry) Add(a Activity) error {
	if a.TaskType == "" {
		return fmt.Errorf("activity %q has no task type", a.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	for i, existing := range r.reg.Activities {
		if existing.TaskType == a.TaskType {
			r.reg.Activities[i] = a
			return nil
		}
	}
	r.reg.Activities = append(r.reg.Activities, a)
	return nil
}

func (r *Registry) Find(taskType string) (Activity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.reg.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

func (r *Registry) Snapshot() ActivityRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.reg
	out.Activities = append([]Activity(nil), r.reg.Activities...)
	return out
}

func (r *Registry) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(r.Snapshot())
}

// SchemaMap turns any JSON-encodable schema value into the generic form
// stored on an Activity.
func SchemaMap(schema interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
